package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the entity most exposed to offline races: it references an
// employee (required) and a shift (optional) by global id. ShiftId stays
// NULL until the shift row exists server-side; EmployeeId can only be NULL
// on legacy rows imported before global ids existed.
type Expense struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"type:char(36);not null;uniqueIndex:uniq_expenses_tenant_global,priority:1" json:"tenant_id"`
	GlobalId          *string         `gorm:"size:64;uniqueIndex:uniq_expenses_tenant_global,priority:2" json:"global_id"`
	BranchId          *int            `gorm:"index" json:"branch_id"`
	EmployeeId        *int            `gorm:"index" json:"employee_id"`
	EmployeeGlobalId  string          `gorm:"size:64" json:"employee_global_id"`
	ShiftId           *int            `gorm:"index" json:"shift_id"`
	ShiftGlobalId     string          `gorm:"size:64;index" json:"shift_global_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"amount"`
	Category          string          `gorm:"size:100" json:"category"`
	Notes             string          `gorm:"size:500" json:"notes"`
	ExpenseDate       *time.Time      `json:"expense_date"`
	Status            LifecycleStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	ReviewedByDesktop *bool           `json:"reviewed_by_desktop"`
	RejectReason      string          `gorm:"size:255" json:"reject_reason,omitempty"`
	TerminalId        string          `gorm:"size:64" json:"terminal_id"`
	LocalOpSeq        *int64          `json:"local_op_seq"`
	CreatedLocalUtc   *time.Time      `json:"created_local_utc"`
	DeviceEventRaw    string          `gorm:"type:text" json:"device_event_raw,omitempty"`
	OriginTerminalId  string          `gorm:"size:64" json:"origin_terminal_id,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
