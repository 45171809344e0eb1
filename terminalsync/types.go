package terminalsync

import (
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/models"
	"github.com/shopspring/decimal"
)

// ApplyOutcome tells the terminal what happened to one uploaded operation.
// "unchanged" means the op was recognized as a replay or carried nothing new;
// replays are safe to send any number of times.
type ApplyOutcome string

const (
	OutcomeCreated   ApplyOutcome = "created"
	OutcomeUpdated   ApplyOutcome = "updated"
	OutcomeUnchanged ApplyOutcome = "unchanged"
	OutcomeFailed    ApplyOutcome = "failed"
)

// SyncOpMeta is the provenance every terminal op carries. NeedsUpdate is the
// terminal's declaration that this op revises an already-uploaded entry; an
// op without it that lands on an existing row is a redelivered duplicate and
// must never overwrite newer data.
//
// Mutable payload fields on the op structs are pointers: a field the payload
// does not carry stays nil and the stored value is retained on update.
type SyncOpMeta struct {
	GlobalId          string                 `json:"global_id" binding:"required" validate:"required,max=64"`
	NeedsUpdate       bool                   `json:"needs_update"`
	TerminalId        string                 `json:"terminal_id"`
	LocalOpSeq        *int64                 `json:"local_op_seq"`
	CreatedLocalUtc   *time.Time             `json:"created_local_utc"`
	Status            models.LifecycleStatus `json:"status"`
	ReviewedByDesktop *bool                  `json:"reviewed_by_desktop"`
	DeviceEventRaw    string                 `json:"device_event_raw"`
}

type SyncCustomerOp struct {
	SyncOpMeta
	BranchId    *int             `json:"branch_id"`
	Name        string           `json:"name" binding:"required" validate:"required"`
	Phone       *string          `json:"phone"`
	Email       *string          `json:"email"`
	Address     *string          `json:"address"`
	Notes       *string          `json:"notes"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
}

type SyncProductOp struct {
	SyncOpMeta
	Name             string           `json:"name" binding:"required" validate:"required"`
	Sku              *string          `json:"sku"`
	Barcode          *string          `json:"barcode"`
	CategoryName     *string          `json:"category_name"`
	Price            *decimal.Decimal `json:"price"`
	Cost             *decimal.Decimal `json:"cost"`
	SupplierGlobalId string           `json:"supplier_global_id"`
	IsActive         *bool            `json:"is_active"`
}

type SyncExpenseOp struct {
	SyncOpMeta
	BranchId         *int             `json:"branch_id"`
	EmployeeGlobalId string           `json:"employee_global_id"`
	ShiftGlobalId    string           `json:"shift_global_id"`
	Amount           *decimal.Decimal `json:"amount"`
	Category         *string          `json:"category"`
	Notes            *string          `json:"notes"`
	ExpenseDate      *time.Time       `json:"expense_date"`
}

type SyncRepartidorReturnOp struct {
	SyncOpMeta
	EmployeeGlobalId   string           `json:"employee_global_id"`
	ProductGlobalId    string           `json:"product_global_id"`
	AssignmentGlobalId string           `json:"assignment_global_id"`
	ShiftGlobalId      string           `json:"shift_global_id"`
	Qty                *decimal.Decimal `json:"qty"`
	Amount             *decimal.Decimal `json:"amount"`
	Reason             *string          `json:"reason"`
}

// OpResult is the per-op outcome echoed back to the terminal.
type OpResult struct {
	GlobalId string                 `json:"global_id"`
	ServerId int                    `json:"server_id,omitempty"`
	Outcome  ApplyOutcome           `json:"outcome"`
	Status   models.LifecycleStatus `json:"status,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

type SyncBatchResponse struct {
	Results   []OpResult `json:"results"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Unchanged int        `json:"unchanged"`
	Failed    int        `json:"failed"`
}

func (r *SyncBatchResponse) add(res OpResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFailed:
		r.Failed++
	}
}

// PullResponse carries rows changed since the terminal's watermark plus the
// new watermark (max updated_at observed, or the old one when nothing moved).
type PullResponse[T any] struct {
	Items    []T       `json:"items"`
	LastSync time.Time `json:"last_sync"`
	HasMore  bool      `json:"has_more"`
}

// ClaimPrimaryInput asks for the primary flag. The admin password is only
// needed when a different device currently holds primacy; an unclaimed
// branch and a same-device refresh succeed without it.
type ClaimPrimaryInput struct {
	BranchId      int    `json:"branch_id" binding:"required"`
	DeviceId      string `json:"device_id" binding:"required"`
	DeviceName    string `json:"device_name"`
	AdminPassword string `json:"admin_password"`
}

// ClaimPrimaryResult reports the claim outcome. ReplacedExisting is true
// when another device held the flag and was demoted by this claim.
type ClaimPrimaryResult struct {
	Claimed          bool                 `json:"claimed"`
	ReplacedExisting bool                 `json:"replaced_existing"`
	Device           *models.BranchDevice `json:"device"`
}

type RejectOrphanedInput struct {
	ShiftGlobalIds []string `json:"shift_global_ids" binding:"required"`
	Reason         string   `json:"reason"`
}
