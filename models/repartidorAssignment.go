package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
)

// RepartidorAssignment records which repartidor took which merchandise out
// for a shift. Returns reference assignments by global id.
type RepartidorAssignment struct {
	ID               int       `gorm:"primary_key" json:"id"`
	TenantId         string    `gorm:"type:char(36);not null;uniqueIndex:uniq_rep_assignments_tenant_global,priority:1" json:"tenant_id"`
	GlobalId         *string   `gorm:"size:64;uniqueIndex:uniq_rep_assignments_tenant_global,priority:2" json:"global_id"`
	OriginTerminalId string    `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	EmployeeId       int       `gorm:"not null;index" json:"employee_id"`
	ShiftId          *int      `gorm:"index" json:"shift_id"`
	AssignedAt       time.Time `gorm:"not null" json:"assigned_at"`
	Notes            string    `gorm:"size:500" json:"notes"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRepartidorAssignment struct {
	EmployeeId int        `json:"employee_id" binding:"required"`
	ShiftId    *int       `json:"shift_id"`
	AssignedAt *time.Time `json:"assigned_at"`
	Notes      string     `json:"notes"`
}

func CreateRepartidorAssignment(ctx context.Context, tenantId string, input *NewRepartidorAssignment) (*RepartidorAssignment, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Employee](ctx, tenantId, input.EmployeeId); err != nil {
		return nil, err
	}
	assignedAt := time.Now().UTC()
	if input.AssignedAt != nil {
		assignedAt = *input.AssignedAt
	}

	assignment := RepartidorAssignment{
		TenantId:   tenantId,
		EmployeeId: input.EmployeeId,
		ShiftId:    input.ShiftId,
		AssignedAt: assignedAt,
		Notes:      input.Notes,
	}
	if err := db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}
