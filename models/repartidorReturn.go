package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepartidorReturn records merchandise a repartidor brought back unsold.
// Employee and product are required references; the assignment and shift are
// optional and may resolve later.
type RepartidorReturn struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	TenantId           string          `gorm:"type:char(36);not null;uniqueIndex:uniq_rep_returns_tenant_global,priority:1" json:"tenant_id"`
	GlobalId           *string         `gorm:"size:64;uniqueIndex:uniq_rep_returns_tenant_global,priority:2" json:"global_id"`
	EmployeeId         *int            `gorm:"index" json:"employee_id"`
	EmployeeGlobalId   string          `gorm:"size:64" json:"employee_global_id"`
	ProductId          *int            `gorm:"index" json:"product_id"`
	ProductGlobalId    string          `gorm:"size:64" json:"product_global_id"`
	AssignmentId       *int            `gorm:"index" json:"assignment_id"`
	AssignmentGlobalId string          `gorm:"size:64" json:"assignment_global_id"`
	ShiftId            *int            `gorm:"index" json:"shift_id"`
	ShiftGlobalId      string          `gorm:"size:64;index" json:"shift_global_id"`
	Qty                decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"qty"`
	Amount             decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0" json:"amount"`
	Reason             string          `gorm:"size:255" json:"reason"`
	Status             LifecycleStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	ReviewedByDesktop  *bool           `json:"reviewed_by_desktop"`
	TerminalId         string          `gorm:"size:64" json:"terminal_id"`
	LocalOpSeq         *int64          `json:"local_op_seq"`
	CreatedLocalUtc    *time.Time      `json:"created_local_utc"`
	DeviceEventRaw     string          `gorm:"type:text" json:"device_event_raw,omitempty"`
	OriginTerminalId   string          `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
