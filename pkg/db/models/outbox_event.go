package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/agrimarket/pkg/enums"
)

// OutboxEvent is an append-only change record written in the same
// transaction as the change it describes.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"type:varchar(64);not null"`
	AggregateType enums.OutboxAggregateType `gorm:"type:varchar(64);not null"`
	AggregateID   string                    `gorm:"type:varchar(128);not null"`
	Payload       string                    `gorm:"type:text;not null"`
	CreatedAt     time.Time                 `gorm:"not null;index:idx_outbox_events_pending,priority:2"`
	PublishedAt   *time.Time                `gorm:"index:idx_outbox_events_pending,priority:1"`
	AttemptCount  int                       `gorm:"not null;default:0"`
	LastError     *string                   `gorm:"type:text"`
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
