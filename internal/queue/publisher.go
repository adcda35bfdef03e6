// Package queue persists sync jobs and hands them to the worker over Kafka.
// The row is the durable source of truth; the Kafka message only carries the
// job id, so a replayed or duplicated message is harmless.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"catalogsync/internal/models"
)

// JobMessage is the Kafka payload: just a pointer to the persisted job.
type JobMessage struct {
	JobID string `json:"job_id"`
}

type Publisher struct {
	db     *gorm.DB
	writer *kafka.Writer
	logger zerolog.Logger
}

func NewPublisher(db *gorm.DB, brokers, topic string, logger zerolog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		db:     db,
		writer: writer,
		logger: logger,
	}
}

// Enqueue persists a queued job and publishes its id. The job row survives
// a dropped message; re-enqueueing the same work is safe because workers
// reconcile idempotently.
func (p *Publisher) Enqueue(ctx context.Context, integrationID string, jobType models.SyncJobType, payload []byte) (*models.SyncJob, error) {
	job := &models.SyncJob{
		IntegrationID: integrationID,
		Type:          jobType,
		Status:        models.SyncJobStatusQueued,
		Payload:       payload,
	}
	if err := p.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to persist sync job: %w", err)
	}

	message, err := json.Marshal(JobMessage{JobID: job.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(integrationID),
		Value: message,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish sync job: %w", err)
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("integration_id", integrationID).
		Str("type", string(jobType)).
		Msg("sync job enqueued")

	return job, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
