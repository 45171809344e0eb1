package terminalsync

import (
	"context"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"gorm.io/gorm"
)

// RejectOrphanedExpenses sweeps the leftovers of shifts that were closed
// offline. For every supplied shift global id that exists server-side, any
// expense still in draft or still unreviewed that references the shift (by
// resolved id or by retained global id) is transitioned to deleted and
// marked reviewed, so it leaves the review queue. Confirmed-and-reviewed
// expenses are left alone; global ids that resolve to no shift are ignored.
// Re-running the sweep with the same ids is a no-op.
func RejectOrphanedExpenses(ctx context.Context, tenantId string, input *RejectOrphanedInput) (int64, error) {
	if len(input.ShiftGlobalIds) == 0 {
		return 0, &ValidationError{Field: "shift_global_ids", Reason: "must not be empty"}
	}
	reason := input.Reason
	if reason == "" {
		reason = "orphaned shift"
	}

	db := config.GetDB()

	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// only shifts that actually exist server-side qualify
		var shifts []models.Shift
		err := tx.Where("tenant_id = ? AND global_id IN ?", tenantId, input.ShiftGlobalIds).
			Find(&shifts).Error
		if err != nil {
			return err
		}
		if len(shifts) == 0 {
			return nil
		}
		shiftIds := make([]int, 0, len(shifts))
		shiftGids := make([]string, 0, len(shifts))
		for i := range shifts {
			shiftIds = append(shiftIds, shifts[i].ID)
			if shifts[i].GlobalId != nil {
				shiftGids = append(shiftGids, *shifts[i].GlobalId)
			}
		}

		var victims []models.Expense
		err = tx.Where("tenant_id = ?", tenantId).
			Where("(shift_id IN ? OR shift_global_id IN ?)", shiftIds, shiftGids).
			Where("status <> ?", models.LifecycleStatusDeleted).
			Where("(status = ? OR reviewed_by_desktop = ?)", models.LifecycleStatusDraft, false).
			Find(&victims).Error
		if err != nil {
			return err
		}
		if len(victims) == 0 {
			return nil
		}

		ids := make([]int, 0, len(victims))
		for i := range victims {
			ids = append(ids, victims[i].ID)
		}
		res := tx.Model(&models.Expense{}).
			Where("tenant_id = ? AND id IN ? AND status <> ?", tenantId, ids, models.LifecycleStatusDeleted).
			Updates(map[string]interface{}{
				"status":              models.LifecycleStatusDeleted,
				"reviewed_by_desktop": true,
				"reject_reason":       reason,
			})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		for i := range victims {
			globalId := ""
			if victims[i].GlobalId != nil {
				globalId = *victims[i].GlobalId
			}
			err := models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityExpense,
				victims[i].ID, globalId, victims[i].TerminalId, models.SyncEventActionUpdated,
				map[string]interface{}{
					"status":              models.LifecycleStatusDeleted,
					"reviewed_by_desktop": true,
					"reject_reason":       reason,
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
