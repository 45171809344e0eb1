package terminalsync

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
	"gorm.io/gorm"
)

// ClaimPrimary makes one device the branch primary. An unclaimed branch is
// granted unconditionally, and the current primary re-claiming is an
// idempotent credential-free refresh; only displacing a different holder is
// gated on the tenant admin password. Demotion of the old primary and
// promotion of the claimant happen in the same transaction, so a reader
// never observes two primaries or zero primaries mid-claim.
func ClaimPrimary(ctx context.Context, tenantId string, input *ClaimPrimaryInput) (*ClaimPrimaryResult, error) {
	db := config.GetDB()
	now := time.Now().UTC()

	var device models.BranchDevice
	replaced := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holder models.BranchDevice
		holderErr := tx.Where("tenant_id = ? AND branch_id = ? AND is_primary = ?",
			tenantId, input.BranchId, true).Take(&holder).Error
		if holderErr != nil && !errors.Is(holderErr, gorm.ErrRecordNotFound) {
			return holderErr
		}

		if holderErr == nil && holder.DeviceId != input.DeviceId {
			// displacing another device needs the tenant admin credential
			tenant, err := models.GetTenantById(ctx, tenantId)
			if err != nil {
				return err
			}
			if input.AdminPassword == "" || tenant.AdminPasswordHash == "" ||
				utils.ComparePassword(tenant.AdminPasswordHash, input.AdminPassword) != nil {
				return &PrimaryConflictError{Holder: holder.DeviceId, Reason: "admin password rejected"}
			}
			if err := tx.Model(&models.BranchDevice{}).
				Where("tenant_id = ? AND id = ?", tenantId, holder.ID).
				Update("is_primary", false).Error; err != nil {
				return err
			}
			replaced = true
		}

		// register the claimant if this is its first contact
		findErr := tx.Where("tenant_id = ? AND branch_id = ? AND device_id = ?",
			tenantId, input.BranchId, input.DeviceId).Take(&device).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			device = models.BranchDevice{
				TenantId:   tenantId,
				BranchId:   input.BranchId,
				DeviceId:   input.DeviceId,
				DeviceName: input.DeviceName,
				LastSeenAt: &now,
			}
			if err := tx.Create(&device).Error; err != nil {
				if !isDuplicateKeyErr(err) {
					return err
				}
				if err := tx.Where("tenant_id = ? AND branch_id = ? AND device_id = ?",
					tenantId, input.BranchId, input.DeviceId).Take(&device).Error; err != nil {
					return err
				}
			}
		} else if findErr != nil {
			return findErr
		}

		updates := map[string]interface{}{
			"is_primary":   true,
			"last_seen_at": now,
		}
		if input.DeviceName != "" {
			updates["device_name"] = input.DeviceName
		}
		return tx.Model(&models.BranchDevice{}).
			Where("tenant_id = ? AND id = ?", tenantId, device.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	device.IsPrimary = utils.NewTrue()
	device.LastSeenAt = &now
	if input.DeviceName != "" {
		device.DeviceName = input.DeviceName
	}
	return &ClaimPrimaryResult{Claimed: true, ReplacedExisting: replaced, Device: &device}, nil
}
