package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer rows can be created both on the desktop and on terminals working
// offline. Terminal-born rows carry the sync metadata (terminal_id,
// local_op_seq, device_event_raw) so a replayed upload is recognizable.
type Customer struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"type:char(36);not null;uniqueIndex:uniq_customers_tenant_global,priority:1" json:"tenant_id"`
	GlobalId          *string         `gorm:"size:64;uniqueIndex:uniq_customers_tenant_global,priority:2" json:"global_id"`
	BranchId          *int            `gorm:"index" json:"branch_id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Phone             string          `gorm:"size:50" json:"phone"`
	Email             string          `gorm:"size:100" json:"email"`
	Address           string          `gorm:"size:255" json:"address"`
	Notes             string          `gorm:"size:500" json:"notes"`
	CreditLimit       decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0" json:"credit_limit"`
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
