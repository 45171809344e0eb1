package terminalsync

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"gorm.io/gorm"
)

// DefaultPullLimit bounds one pull page. Terminals page by feeding the
// returned last_sync back in until has_more is false.
const DefaultPullLimit = 500

// pullRows is the shared incremental-pull query: strictly-after the
// watermark, ordered by (updated_at, id). Because the next pull resumes
// strictly after last_sync, rows sharing the boundary timestamp must all
// travel in the same page; cutting between them would skip the rest forever,
// so a page is allowed to run past limit to finish out a timestamp tie.
func pullRows[T any](ctx context.Context, tenantId string, branchId *int, since time.Time, limit int, updatedAt func(*T) time.Time) ([]T, bool, error) {
	if limit <= 0 || limit > DefaultPullLimit {
		limit = DefaultPullLimit
	}

	db := config.GetDB()
	base := func() *gorm.DB {
		q := db.WithContext(ctx).Where("tenant_id = ? AND updated_at > ?", tenantId, since)
		if branchId != nil {
			q = q.Where("branch_id = ?", *branchId)
		}
		return q.Order("updated_at asc, id asc")
	}

	var items []T
	if err := base().Limit(limit + 1).Find(&items).Error; err != nil {
		return nil, false, err
	}
	if len(items) <= limit {
		return items, false, nil
	}

	boundary := updatedAt(&items[limit-1])
	if updatedAt(&items[limit]).After(boundary) {
		// clean cut, no tie across the page edge
		return items[:limit], true, nil
	}
	var page []T
	if err := base().Where("updated_at <= ?", boundary).Find(&page).Error; err != nil {
		return nil, false, err
	}
	return page, true, nil
}

func buildPullResponse[T any](items []T, since time.Time, hasMore bool, updatedAt func(*T) time.Time) *PullResponse[T] {
	lastSync := since
	for i := range items {
		if ts := updatedAt(&items[i]); ts.After(lastSync) {
			lastSync = ts
		}
	}
	return &PullResponse[T]{Items: items, LastSync: lastSync, HasMore: hasMore}
}

func PullCustomers(ctx context.Context, tenantId string, branchId *int, since time.Time, limit int) (*PullResponse[models.Customer], error) {
	updatedAt := func(c *models.Customer) time.Time { return c.UpdatedAt }
	items, hasMore, err := pullRows(ctx, tenantId, branchId, since, limit, updatedAt)
	if err != nil {
		return nil, err
	}
	return buildPullResponse(items, since, hasMore, updatedAt), nil
}

func PullProducts(ctx context.Context, tenantId string, since time.Time, limit int) (*PullResponse[models.Product], error) {
	updatedAt := func(p *models.Product) time.Time { return p.UpdatedAt }
	items, hasMore, err := pullRows(ctx, tenantId, nil, since, limit, updatedAt)
	if err != nil {
		return nil, err
	}
	return buildPullResponse(items, since, hasMore, updatedAt), nil
}

func PullExpenses(ctx context.Context, tenantId string, branchId *int, since time.Time, limit int) (*PullResponse[models.Expense], error) {
	updatedAt := func(e *models.Expense) time.Time { return e.UpdatedAt }
	items, hasMore, err := pullRows(ctx, tenantId, branchId, since, limit, updatedAt)
	if err != nil {
		return nil, err
	}
	return buildPullResponse(items, since, hasMore, updatedAt), nil
}

func PullRepartidorReturns(ctx context.Context, tenantId string, since time.Time, limit int) (*PullResponse[models.RepartidorReturn], error) {
	updatedAt := func(r *models.RepartidorReturn) time.Time { return r.UpdatedAt }
	items, hasMore, err := pullRows(ctx, tenantId, nil, since, limit, updatedAt)
	if err != nil {
		return nil, err
	}
	return buildPullResponse(items, since, hasMore, updatedAt), nil
}
