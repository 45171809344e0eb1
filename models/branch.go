package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
)

type Branch struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"type:char(36);not null;index" json:"tenant_id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBranch struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func CreateBranch(ctx context.Context, tenantId string, input *NewBranch) (*Branch, error) {
	db := config.GetDB()

	branch := Branch{
		TenantId: tenantId,
		Name:     input.Name,
		Phone:    input.Phone,
		Address:  input.Address,
	}
	if err := db.WithContext(ctx).Create(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func GetBranchById(ctx context.Context, tenantId string, id int) (*Branch, error) {
	return utils.FetchModel[Branch](ctx, tenantId, id)
}
