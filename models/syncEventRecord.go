package models

import (
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
)

// SyncEventRecord is the transactional outbox row. It is written in the same
// transaction as the entity mutation; the dispatcher publishes it to Pub/Sub
// after commit. Never publish from inside a transaction.
type SyncEventRecord struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TenantId         string          `gorm:"type:char(36);not null;index" json:"tenant_id"`
	EntityType       SyncEntityType  `gorm:"size:40;not null" json:"entity_type"`
	EntityId         int             `gorm:"not null" json:"entity_id"`
	GlobalId         string          `gorm:"size:64" json:"global_id"`
	TerminalId       string          `gorm:"size:64" json:"terminal_id"`
	Action           SyncEventAction `gorm:"size:20;not null" json:"action"`
	Payload          []byte          `gorm:"type:json" json:"payload"`
	CorrelationId    string          `gorm:"size:64" json:"correlation_id"`
	AppliedAt        time.Time       `gorm:"not null" json:"applied_at"`
	PublishStatus    string          `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishAttempts  int             `gorm:"not null;default:0" json:"publish_attempts"`
	LastPublishError *string         `gorm:"size:1000" json:"last_publish_error"`
	NextAttemptAt    *time.Time      `gorm:"index" json:"next_attempt_at"`
	LockedAt         *time.Time      `json:"locked_at"`
	LockedBy         *string         `gorm:"size:64" json:"locked_by"`
	PublishedAt      *time.Time      `json:"published_at"`
	PubSubMessageId  *string         `gorm:"size:64" json:"pubsub_message_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *SyncEventRecord) ToMessage() config.SyncEventMessage {
	return config.SyncEventMessage{
		ID:            r.ID,
		TenantId:      r.TenantId,
		EntityType:    string(r.EntityType),
		EntityId:      r.EntityId,
		GlobalId:      r.GlobalId,
		Action:        string(r.Action),
		TerminalId:    r.TerminalId,
		AppliedAt:     r.AppliedAt,
		Payload:       r.Payload,
		CorrelationId: r.CorrelationId,
	}
}
