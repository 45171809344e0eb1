package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
)

// Employee covers cashiers and repartidores (delivery staff). Terminals
// reference employees by global id when reporting expenses and returns.
type Employee struct {
	ID               int       `gorm:"primary_key" json:"id"`
	TenantId         string    `gorm:"type:char(36);not null;uniqueIndex:uniq_employees_tenant_global,priority:1" json:"tenant_id"`
	GlobalId         *string   `gorm:"size:64;uniqueIndex:uniq_employees_tenant_global,priority:2" json:"global_id"`
	OriginTerminalId string    `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	BranchId         *int      `gorm:"index" json:"branch_id"`
	Name             string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone            string    `gorm:"size:50" json:"phone"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEmployee struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	BranchId *int   `json:"branch_id"`
}

func CreateEmployee(ctx context.Context, tenantId string, input *NewEmployee) (*Employee, error) {
	db := config.GetDB()

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, err
		}
	}

	employee := Employee{
		TenantId: tenantId,
		BranchId: input.BranchId,
		Name:     input.Name,
		Phone:    input.Phone,
	}
	if err := db.WithContext(ctx).Create(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func GetEmployeeById(ctx context.Context, tenantId string, id int) (*Employee, error) {
	return utils.FetchModel[Employee](ctx, tenantId, id)
}
