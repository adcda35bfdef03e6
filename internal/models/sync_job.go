package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncJob is a durable record of asynchronous sync work. Jobs are persisted
// before being published to the queue so a reclaimed worker never silently
// drops a sync.
type SyncJob struct {
	ID            string        `json:"id" gorm:"type:uuid;primary_key"`
	IntegrationID string        `json:"integration_id" gorm:"type:uuid;not null;index"`
	Type          SyncJobType   `json:"type" gorm:"not null"`
	Status        SyncJobStatus `json:"status" gorm:"default:queued;index"`
	// Payload carries the raw external product JSON for item jobs; empty
	// for full passes.
	Payload    []byte     `json:"-"`
	Error      string     `json:"error,omitempty"`
	Total      int        `json:"total"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Errors     int        `json:"errors"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type SyncJobType string

const (
	SyncJobTypeFull       SyncJobType = "full"
	SyncJobTypeItem       SyncJobType = "item"
	SyncJobTypeItemDelete SyncJobType = "item_delete"
)

type SyncJobStatus string

const (
	SyncJobStatusQueued  SyncJobStatus = "queued"
	SyncJobStatusRunning SyncJobStatus = "running"
	SyncJobStatusDone    SyncJobStatus = "done"
	SyncJobStatusFailed  SyncJobStatus = "failed"
)

func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}
