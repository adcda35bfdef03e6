// Package worker consumes sync jobs from Kafka and executes them. Each job
// row moves queued -> running -> done|failed; the counters of full passes
// are recorded on the job so operators can inspect a run after the fact.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/models"
	"catalogsync/internal/queue"
	"catalogsync/internal/services/shopify"
)

const consumerGroup = "catalogsync-worker"

type Worker struct {
	config *config.Config
	db     *gorm.DB
	syncer *catalog.Syncer
	reader *kafka.Reader
	logger zerolog.Logger
	done   chan struct{}
}

func New(cfg *config.Config, db *gorm.DB, syncer *catalog.Syncer, logger zerolog.Logger) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.KafkaBrokers, ","),
		GroupID:        consumerGroup,
		Topic:          cfg.SyncJobsTopic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})

	return &Worker{
		config: cfg,
		db:     db,
		syncer: syncer,
		reader: reader,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.logger.Info().Str("group", consumerGroup).Msg("worker started, waiting for jobs")

	for {
		select {
		case <-w.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error().Err(err).Msg("failed to read message")
			continue
		}

		var msg queue.JobMessage
		if err := json.Unmarshal(message.Value, &msg); err != nil {
			w.logger.Error().Err(err).Str("value", string(message.Value)).Msg("failed to parse job message")
			continue
		}

		if err := w.runJob(context.Background(), msg.JobID); err != nil {
			w.logger.Error().Err(err).Str("job_id", msg.JobID).Msg("job failed")
		}
	}
}

func (w *Worker) Stop() {
	w.logger.Info().Msg("stopping worker")
	close(w.done)
	w.reader.Close()
}

// runJob loads the job row, claims it, executes it and records the outcome.
// Jobs already past queued are skipped: the row, not the message, decides.
func (w *Worker) runJob(ctx context.Context, jobID string) error {
	var job models.SyncJob
	if err := w.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	if job.Status != models.SyncJobStatusQueued {
		w.logger.Debug().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("job already handled, skipping")
		return nil
	}

	now := time.Now()
	job.Status = models.SyncJobStatusRunning
	job.StartedAt = &now
	if err := w.db.WithContext(ctx).Save(&job).Error; err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}

	var integ models.Integration
	if err := w.db.WithContext(ctx).First(&integ, "id = ?", job.IntegrationID).Error; err != nil {
		return w.finishJob(ctx, &job, nil, fmt.Errorf("failed to load integration: %w", err))
	}

	result, err := w.execute(ctx, &job, &integ)
	return w.finishJob(ctx, &job, result, err)
}

func (w *Worker) execute(ctx context.Context, job *models.SyncJob, integ *models.Integration) (*catalog.SyncRunResult, error) {
	switch job.Type {
	case models.SyncJobTypeFull:
		client := shopify.NewClient(integ.ShopDomain, integ.AccessToken, w.logger)
		return w.syncer.FullSync(ctx, integ, client)

	case models.SyncJobTypeItem:
		var product shopify.Product
		if err := json.Unmarshal(job.Payload, &product); err != nil {
			return nil, fmt.Errorf("failed to parse product payload: %w", err)
		}
		created, err := w.syncer.SyncItem(ctx, integ, &product)
		if err != nil {
			return nil, err
		}
		result := &catalog.SyncRunResult{TotalProducts: 1}
		if created {
			result.Created = 1
		} else {
			result.Updated = 1
		}
		return result, nil

	case models.SyncJobTypeItemDelete:
		var payload shopify.DeletePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to parse delete payload: %w", err)
		}
		if err := w.syncer.DeleteItem(ctx, integ, fmt.Sprintf("%d", payload.ID)); err != nil {
			return nil, err
		}
		return &catalog.SyncRunResult{TotalProducts: 1}, nil

	default:
		return nil, fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (w *Worker) finishJob(ctx context.Context, job *models.SyncJob, result *catalog.SyncRunResult, runErr error) error {
	now := time.Now()
	job.FinishedAt = &now

	if result != nil {
		job.Total = result.TotalProducts
		job.Created = result.Created
		job.Updated = result.Updated
		job.Skipped = result.Skipped
		job.Errors = result.Errors
	}

	if runErr != nil {
		job.Status = models.SyncJobStatusFailed
		job.Error = runErr.Error()
	} else {
		job.Status = models.SyncJobStatusDone
	}

	if err := w.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Str("status", string(job.Status)).
		Int("created", job.Created).
		Int("updated", job.Updated).
		Int("errors", job.Errors).
		Msg("job finished")

	return runErr
}
