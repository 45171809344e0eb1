package terminalsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tableForEntity maps the resolver-addressable entity types to their tables.
var tableForEntity = map[models.SyncEntityType]string{
	models.SyncEntityCustomer:             "customers",
	models.SyncEntityProduct:              "products",
	models.SyncEntityExpense:              "expenses",
	models.SyncEntityRepartidorReturn:     "repartidor_returns",
	models.SyncEntityEmployee:             "employees",
	models.SyncEntityShift:                "shifts",
	models.SyncEntitySupplier:             "suppliers",
	models.SyncEntityRepartidorAssignment: "repartidor_assignments",
}

// ResolveGlobalId maps a tenant-scoped global id to the server surrogate key.
// Returns ErrNotFound when no row carries that global id yet; callers
// tolerate this for optional references and retain the string for healing.
func ResolveGlobalId(ctx context.Context, db *gorm.DB, tenantId string, entityType models.SyncEntityType, globalId string) (int, error) {
	if globalId == "" {
		return 0, &ValidationError{Field: "global_id", Reason: "is required"}
	}
	table, ok := tableForEntity[entityType]
	if !ok {
		return 0, &ValidationError{Field: "entity_type", Reason: "unknown entity type"}
	}

	var ids []int
	err := db.WithContext(ctx).Table(table).
		Where("tenant_id = ? AND global_id = ?", tenantId, globalId).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 || ids[0] == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}

// resolveOptionalRef resolves a reference global id, mapping ErrNotFound to a
// NULL foreign key. Validation errors on the id itself still surface.
func resolveOptionalRef(ctx context.Context, db *gorm.DB, tenantId string, entityType models.SyncEntityType, globalId string) (*int, error) {
	if globalId == "" {
		return nil, nil
	}
	id, err := ResolveGlobalId(ctx, db, tenantId, entityType, globalId)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// resolveRequiredRef is the hard variant: the id must be present and must
// resolve, otherwise the whole op is rejected.
func resolveRequiredRef(ctx context.Context, db *gorm.DB, tenantId string, entityType models.SyncEntityType, field, globalId string) (*int, error) {
	if globalId == "" {
		return nil, &ValidationError{Field: field, Reason: "is required"}
	}
	id, err := ResolveGlobalId(ctx, db, tenantId, entityType, globalId)
	if errors.Is(err, ErrNotFound) {
		return nil, &MissingReferenceError{Field: field, GlobalId: globalId}
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// EnsureGlobalId mints a server-side global id for a legacy row that lacks
// one. Concurrent minters race on a conditional UPDATE; the loser re-reads
// the winner's value so one row never ends up with two identities. The redis
// lock only narrows the race window, the UPDATE guard is what guarantees
// correctness.
func EnsureGlobalId(ctx context.Context, db *gorm.DB, tenantId string, entityType models.SyncEntityType, id int) (string, error) {
	table, ok := tableForEntity[entityType]
	if !ok {
		return "", &ValidationError{Field: "entity_type", Reason: "unknown entity type"}
	}

	read := func() (string, error) {
		var existing []*string
		err := db.WithContext(ctx).Table(table).
			Where("tenant_id = ? AND id = ?", tenantId, id).
			Limit(1).
			Pluck("global_id", &existing).Error
		if err != nil {
			return "", err
		}
		if len(existing) > 0 && existing[0] != nil && *existing[0] != "" {
			return *existing[0], nil
		}
		return "", nil
	}

	if current, err := read(); err != nil || current != "" {
		return current, err
	}

	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("MintGlobalId:%s:%s:%d", tenantId, entityType, id)
		if lock, lockErr := locker.Obtain(ctx, lockKey, 3*time.Second, &redislock.Options{}); lockErr == nil {
			defer lock.Release(ctx)
		}
	}

	// the minted identity records who forced it into existence
	origin, _ := utils.GetTerminalIdFromContext(ctx)
	if origin == "" {
		origin = "server"
	}

	minted := uuid.New().String()
	res := db.WithContext(ctx).Table(table).
		Where("tenant_id = ? AND id = ? AND (global_id IS NULL OR global_id = '')", tenantId, id).
		Updates(map[string]interface{}{"global_id": minted, "origin_terminal_id": origin})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race (or the row is gone); trust the winner
		current, err := read()
		if err != nil {
			return "", err
		}
		if current == "" {
			return "", ErrNotFound
		}
		return current, nil
	}
	return minted, nil
}
