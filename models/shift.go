package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
)

// Shift is a cash-register session. Terminals attach expenses and returns to
// shifts by global id; expenses that reference a shift which never makes it to
// the server become orphans (see terminalsync).
type Shift struct {
	ID               int         `gorm:"primary_key" json:"id"`
	TenantId         string      `gorm:"type:char(36);not null;uniqueIndex:uniq_shifts_tenant_global,priority:1" json:"tenant_id"`
	GlobalId         *string     `gorm:"size:64;uniqueIndex:uniq_shifts_tenant_global,priority:2" json:"global_id"`
	OriginTerminalId string      `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	BranchId         int         `gorm:"not null;index" json:"branch_id"`
	EmployeeId       *int        `gorm:"index" json:"employee_id"`
	CurrentStatus    ShiftStatus `gorm:"size:20;not null;default:'open'" json:"current_status"`
	OpenedAt         time.Time   `gorm:"not null" json:"opened_at"`
	ClosedAt         *time.Time  `json:"closed_at"`
	CreatedAt        time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewShift struct {
	BranchId   int        `json:"branch_id" binding:"required"`
	EmployeeId *int       `json:"employee_id"`
	OpenedAt   *time.Time `json:"opened_at"`
}

func CreateShift(ctx context.Context, tenantId string, input *NewShift) (*Shift, error) {
	db := config.GetDB()

	openedAt := time.Now().UTC()
	if input.OpenedAt != nil {
		openedAt = *input.OpenedAt
	}

	shift := Shift{
		TenantId:      tenantId,
		BranchId:      input.BranchId,
		EmployeeId:    input.EmployeeId,
		CurrentStatus: ShiftStatusOpen,
		OpenedAt:      openedAt,
	}
	if err := db.WithContext(ctx).Create(&shift).Error; err != nil {
		return nil, err
	}
	return &shift, nil
}

func CloseShift(ctx context.Context, tenantId string, id int) (*Shift, error) {
	db := config.GetDB()

	shift, err := utils.FetchModel[Shift](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if shift.CurrentStatus == ShiftStatusClosed {
		return nil, errors.New("shift already closed")
	}

	now := time.Now().UTC()
	err = db.WithContext(ctx).Model(shift).
		Where("tenant_id = ?", tenantId).
		Updates(map[string]interface{}{
			"current_status": ShiftStatusClosed,
			"closed_at":      now,
		}).Error
	if err != nil {
		return nil, err
	}
	shift.CurrentStatus = ShiftStatusClosed
	shift.ClosedAt = &now
	return shift, nil
}

func GetShiftById(ctx context.Context, tenantId string, id int) (*Shift, error) {
	return utils.FetchModel[Shift](ctx, tenantId, id)
}
