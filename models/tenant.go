package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"github.com/google/uuid"
)

type Tenant struct {
	ID                uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name              string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email             string    `gorm:"size:100" json:"email"`
	Timezone          string    `gorm:"size:64" json:"timezone"`
	AdminPasswordHash string    `gorm:"size:255" json:"-"`
	IsActive          *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTenant struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email"`
	Timezone      string `json:"timezone"`
	AdminPassword string `json:"admin_password"`
}

/*
caches:
	Tenant:$tenantId
*/

func CreateTenant(ctx context.Context, input *NewTenant) (*Tenant, error) {
	db := config.GetDB()

	tenant := Tenant{
		ID:       uuid.New(),
		Name:     input.Name,
		Email:    input.Email,
		Timezone: input.Timezone,
	}
	if input.AdminPassword != "" {
		hashed, err := hashAdminPassword(input.AdminPassword)
		if err != nil {
			return nil, err
		}
		tenant.AdminPasswordHash = hashed
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// every tenant starts with one branch
	branch := Branch{
		TenantId: tenant.ID.String(),
		Name:     "Principal",
	}
	if err := tx.WithContext(ctx).Create(&branch).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &tenant, nil
}

func GetTenantById(ctx context.Context, tenantId string) (*Tenant, error) {
	if tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var tenant Tenant
	exists, err := config.GetRedisObject("Tenant:"+tenantId, &tenant)
	if err != nil {
		return nil, err
	}
	if exists {
		return &tenant, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", tenantId).Take(&tenant).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("Tenant:"+tenantId, &tenant, 0); err != nil {
		return nil, err
	}
	return &tenant, nil
}
