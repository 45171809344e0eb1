package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishSyncEvent records an outbox row inside the caller's transaction.
// The actual Pub/Sub publish happens after commit, in the dispatcher.
func PublishSyncEvent(ctx context.Context, tx *gorm.DB, tenantId string, entityType SyncEntityType,
	entityId int, globalId string, terminalId string, action SyncEventAction, obj interface{}) error {

	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	record := SyncEventRecord{
		TenantId:      tenantId,
		EntityType:    entityType,
		EntityId:      entityId,
		GlobalId:      globalId,
		TerminalId:    terminalId,
		Action:        action,
		Payload:       payload,
		CorrelationId: correlationIdFromContextOrNew(ctx),
		AppliedAt:     time.Now().UTC(),
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if id, ok := utils.GetCorrelationIdFromContext(ctx); ok && id != "" {
		return id
	}
	return uuid.New().String()
}
