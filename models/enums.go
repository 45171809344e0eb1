package models

// LifecycleStatus tracks draft/confirmed/deleted for entities a terminal may
// stage before committing. "deleted" is terminal for the sync engine;
// physical deletion is a separate administrative action.
type LifecycleStatus string

const (
	LifecycleStatusDraft     LifecycleStatus = "draft"
	LifecycleStatusConfirmed LifecycleStatus = "confirmed"
	LifecycleStatusDeleted   LifecycleStatus = "deleted"
)

func (s LifecycleStatus) Valid() bool {
	switch s {
	case LifecycleStatusDraft, LifecycleStatusConfirmed, LifecycleStatusDeleted:
		return true
	}
	return false
}

type UserRole string

const (
	UserRoleAdmin   UserRole = "A"
	UserRoleOwner   UserRole = "O"
	UserRoleCashier UserRole = "C"
)

// SyncEntityType names every table the identity resolver can address.
type SyncEntityType string

const (
	SyncEntityCustomer             SyncEntityType = "customer"
	SyncEntityProduct              SyncEntityType = "product"
	SyncEntityExpense              SyncEntityType = "expense"
	SyncEntityRepartidorReturn     SyncEntityType = "repartidor_return"
	SyncEntityEmployee             SyncEntityType = "employee"
	SyncEntityShift                SyncEntityType = "shift"
	SyncEntitySupplier             SyncEntityType = "supplier"
	SyncEntityRepartidorAssignment SyncEntityType = "repartidor_assignment"
)

type SyncEventAction string

const (
	SyncEventActionCreated SyncEventAction = "created"
	SyncEventActionUpdated SyncEventAction = "updated"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)
