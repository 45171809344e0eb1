package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDispatcher drains sync_event_records to Pub/Sub. Rows are claimed
// with FOR UPDATE SKIP LOCKED so several instances can run side by side;
// stale locks from a crashed worker expire after LockTTL. A row that keeps
// failing is parked as DEAD after MaxAttempts and needs manual attention.
type OutboxDispatcher struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	Publish     PublishFunc
	WorkerID    string
	BatchSize   int
	Interval    time.Duration
	LockTTL     time.Duration
	MaxAttempts int
}

// PublishFunc publishes one message and returns the broker-assigned id.
// Injected so tests can run without Pub/Sub.
type PublishFunc func(ctx context.Context, rec *models.SyncEventRecord) (string, error)

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger, publish PublishFunc) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:          db,
		Logger:      logger,
		Publish:     publish,
		WorkerID:    "dispatcher-" + time.Now().Format("20060102-150405.000"),
		BatchSize:   50,
		Interval:    2 * time.Second,
		LockTTL:     30 * time.Second,
		MaxAttempts: 8,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.DB == nil || d.Publish == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.Interval):
		}
	}
}

// DispatchOnce claims one batch and publishes it. Exported for tests and for
// the maintenance binary.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTTL)

	var claimed []models.SyncEventRecord
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("publish_status IN ?", []string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}).
			Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
			Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &d.WorkerID
			if err := tx.Model(&models.SyncEventRecord{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"publish_status": models.OutboxPublishStatusProcessing,
					"locked_at":      claimed[i].LockedAt,
					"locked_by":      claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for i := range claimed {
		d.publishOne(ctx, &claimed[i])
	}
}

func (d *OutboxDispatcher) publishOne(ctx context.Context, rec *models.SyncEventRecord) {
	msgId, err := d.Publish(ctx, rec)
	if err != nil {
		attempts := rec.PublishAttempts + 1
		status := models.OutboxPublishStatusFailed
		if attempts >= d.MaxAttempts {
			status = models.OutboxPublishStatusDead
		}
		errMsg := err.Error()
		nextAttempt := time.Now().UTC().Add(backoff(attempts))
		_ = d.DB.WithContext(ctx).Model(&models.SyncEventRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"publish_status":     status,
				"publish_attempts":   attempts,
				"last_publish_error": &errMsg,
				"next_attempt_at":    &nextAttempt,
				"locked_at":          nil,
				"locked_by":          nil,
			}).Error
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"field":       "OutboxDispatcher",
				"tenant_id":   rec.TenantId,
				"entity_type": rec.EntityType,
				"entity_id":   rec.EntityId,
				"record_id":   rec.ID,
				"attempts":    attempts,
				"status":      status,
			}).Error("publish failed: " + errMsg)
		}
		return
	}

	now := time.Now().UTC()
	_ = d.DB.WithContext(ctx).Model(&models.SyncEventRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"publish_status":    models.OutboxPublishStatusSent,
			"publish_attempts":  rec.PublishAttempts + 1,
			"published_at":      &now,
			"pubsub_message_id": &msgId,
			"locked_at":         nil,
			"locked_by":         nil,
		}).Error
}

// backoff doubles per attempt, capped at 5 minutes.
func backoff(attempts int) time.Duration {
	d := time.Duration(1<<uint(attempts)) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}

// RevertStaleProcessing returns rows stuck in PROCESSING (a worker died
// holding them) back to PENDING once their lock has expired.
func (d *OutboxDispatcher) RevertStaleProcessing(ctx context.Context) (int64, error) {
	staleBefore := time.Now().UTC().Add(-d.LockTTL)
	res := d.DB.WithContext(ctx).Model(&models.SyncEventRecord{}).
		Where("publish_status = ? AND (locked_at IS NULL OR locked_at <= ?)",
			models.OutboxPublishStatusProcessing, staleBefore).
		Updates(map[string]interface{}{
			"publish_status": models.OutboxPublishStatusPending,
			"locked_at":      nil,
			"locked_by":      nil,
		})
	return res.RowsAffected, res.Error
}
