package terminalsync

import (
	"context"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"gorm.io/gorm"
)

// PendingReviewExpenses lists terminal-born expenses the desktop has not
// looked at yet.
func PendingReviewExpenses(ctx context.Context, tenantId string) ([]models.Expense, error) {
	db := config.GetDB()

	var items []models.Expense
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND reviewed_by_desktop = ? AND status <> ?",
			tenantId, false, models.LifecycleStatusDeleted).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ApproveExpense marks one expense as desktop-reviewed and confirms it if it
// is still a draft. Approving twice is a no-op.
func ApproveExpense(ctx context.Context, tenantId string, id int) (*models.Expense, error) {
	db := config.GetDB()

	var expense models.Expense
	if err := db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantId, id).Take(&expense).Error; err != nil {
		return nil, ErrNotFound
	}

	updates := map[string]interface{}{}
	if expense.ReviewedByDesktop == nil || !*expense.ReviewedByDesktop {
		updates["reviewed_by_desktop"] = true
	}
	if expense.Status == models.LifecycleStatusDraft {
		updates["status"] = models.LifecycleStatusConfirmed
	}
	if len(updates) == 0 {
		return &expense, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Expense{}).
			Where("tenant_id = ? AND id = ?", tenantId, id).
			Updates(updates).Error; err != nil {
			return err
		}
		globalId := ""
		if expense.GlobalId != nil {
			globalId = *expense.GlobalId
		}
		return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityExpense, expense.ID, globalId, "", models.SyncEventActionUpdated, updates)
	})
	if err != nil {
		return nil, err
	}
	if _, ok := updates["reviewed_by_desktop"]; ok {
		t := true
		expense.ReviewedByDesktop = &t
	}
	if _, ok := updates["status"]; ok {
		expense.Status = models.LifecycleStatusConfirmed
	}
	return &expense, nil
}
