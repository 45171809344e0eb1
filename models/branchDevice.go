package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
)

// BranchDevice registers every desktop/terminal seen at a branch. At most one
// device per branch holds is_primary; terminalsync.ClaimPrimary enforces the
// invariant inside a single transaction.
type BranchDevice struct {
	ID         int        `gorm:"primary_key" json:"id"`
	TenantId   string     `gorm:"type:char(36);not null;uniqueIndex:uniq_branch_devices,priority:1" json:"tenant_id"`
	BranchId   int        `gorm:"not null;uniqueIndex:uniq_branch_devices,priority:2" json:"branch_id"`
	DeviceId   string     `gorm:"size:64;not null;uniqueIndex:uniq_branch_devices,priority:3" json:"device_id"`
	DeviceName string     `gorm:"size:255" json:"device_name"`
	IsPrimary  *bool      `gorm:"not null;default:false" json:"is_primary"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPrimaryDevice(ctx context.Context, tenantId string, branchId int) (*BranchDevice, error) {
	db := config.GetDB()

	var device BranchDevice
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND branch_id = ? AND is_primary = ?", tenantId, branchId, true).
		Take(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func TouchDeviceLastSeen(ctx context.Context, tenantId string, branchId int, deviceId string) error {
	db := config.GetDB()

	return db.WithContext(ctx).Model(&BranchDevice{}).
		Where("tenant_id = ? AND branch_id = ? AND device_id = ?", tenantId, branchId, deviceId).
		Update("last_seen_at", time.Now().UTC()).Error
}
