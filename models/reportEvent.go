package models

import (
	"time"

	"github.com/mmdatafocus/returns_backend/config"
)

// Outbox publish statuses for ReportEvent.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const (
	ReportEventSubmitted      = "REPORT_SUBMITTED"
	ReportEventPeriodClosed   = "PERIOD_CLOSED"
	ReportEventPeriodReopened = "PERIOD_REOPENED"
)

// ReportEvent is the transactional outbox row written alongside ledger changes.
// The dispatcher publishes it after commit.
type ReportEvent struct {
	ID               int        `gorm:"primary_key;index:idx_report_event_dispatch,priority:3" json:"id"`
	EventType        string     `gorm:"size:30;not null" json:"event_type"`
	StoreId          int        `gorm:"index" json:"store_id"`
	StoreCode        string     `gorm:"size:20" json:"store_code"`
	Period           string     `gorm:"size:10;not null;index" json:"period"`
	TotalQuantity    int        `gorm:"not null;default:0" json:"total_quantity"`
	LineCount        int        `gorm:"not null;default:0" json:"line_count"`
	PublishStatus    string     `gorm:"size:20;not null;default:'PENDING';index:idx_report_event_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index:idx_report_event_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e ReportEvent) ToMessage() config.ReportEventMessage {
	return config.ReportEventMessage{
		ID:            e.ID,
		EventType:     e.EventType,
		StoreId:       e.StoreId,
		StoreCode:     e.StoreCode,
		Period:        e.Period,
		TotalQuantity: e.TotalQuantity,
		LineCount:     e.LineCount,
		OccurredAt:    e.CreatedAt,
		CorrelationId: e.CorrelationId,
	}
}
