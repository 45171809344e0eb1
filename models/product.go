package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product keeps both the resolved supplier foreign key and the supplier's
// global id string. If the supplier has not arrived yet the foreign key stays
// NULL and is healed by the next resolver pass over the retained global id.
type Product struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"type:char(36);not null;uniqueIndex:uniq_products_tenant_global,priority:1" json:"tenant_id"`
	GlobalId          *string         `gorm:"size:64;uniqueIndex:uniq_products_tenant_global,priority:2" json:"global_id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Sku               string          `gorm:"size:100;index" json:"sku"`
	Barcode           string          `gorm:"size:100;index" json:"barcode"`
	CategoryName      string          `gorm:"size:100" json:"category_name"`
	Price             decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0" json:"price"`
	Cost              decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0" json:"cost"`
	SupplierId        *int            `gorm:"index" json:"supplier_id"`
	SupplierGlobalId  string          `gorm:"size:64" json:"supplier_global_id"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	Status            LifecycleStatus `gorm:"size:20;not null;default:'confirmed'" json:"status"`
	ReviewedByDesktop *bool           `json:"reviewed_by_desktop"`
	TerminalId        string          `gorm:"size:64" json:"terminal_id"`
	LocalOpSeq        *int64          `json:"local_op_seq"`
	CreatedLocalUtc   *time.Time      `json:"created_local_utc"`
	DeviceEventRaw    string          `gorm:"type:text" json:"device_event_raw,omitempty"`
	OriginTerminalId  string          `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
