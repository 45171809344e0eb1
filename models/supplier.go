package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
)

type Supplier struct {
	ID               int       `gorm:"primary_key" json:"id"`
	TenantId         string    `gorm:"type:char(36);not null;uniqueIndex:uniq_suppliers_tenant_global,priority:1" json:"tenant_id"`
	GlobalId         *string   `gorm:"size:64;uniqueIndex:uniq_suppliers_tenant_global,priority:2" json:"global_id"`
	OriginTerminalId string    `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	Name             string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone            string    `gorm:"size:50" json:"phone"`
	Email            string    `gorm:"size:100" json:"email"`
	Address          string    `gorm:"size:255" json:"address"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func CreateSupplier(ctx context.Context, tenantId string, input *NewSupplier) (*Supplier, error) {
	db := config.GetDB()

	supplier := Supplier{
		TenantId: tenantId,
		Name:     input.Name,
		Phone:    input.Phone,
		Email:    input.Email,
		Address:  input.Address,
	}
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func GetSupplierById(ctx context.Context, tenantId string, id int) (*Supplier, error) {
	return utils.FetchModel[Supplier](ctx, tenantId, id)
}
