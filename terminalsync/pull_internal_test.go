package terminalsync

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/models"
)

func TestBuildPullResponseWatermark(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	items := []models.Customer{
		{ID: 1, UpdatedAt: base.Add(1 * time.Second)},
		{ID: 2, UpdatedAt: base.Add(5 * time.Second)},
		{ID: 3, UpdatedAt: base.Add(3 * time.Second)},
	}

	resp := buildPullResponse(items, base, false, func(c *models.Customer) time.Time { return c.UpdatedAt })
	if !resp.LastSync.Equal(base.Add(5 * time.Second)) {
		t.Fatalf("last_sync must be the max updated_at observed; got %s", resp.LastSync)
	}
	if resp.HasMore {
		t.Fatalf("has_more must pass through")
	}
}

func TestBuildPullResponseEmptyKeepsWatermark(t *testing.T) {
	since := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resp := buildPullResponse(nil, since, false, func(c *models.Customer) time.Time { return c.UpdatedAt })
	if !resp.LastSync.Equal(since) {
		t.Fatalf("empty pull must echo the caller's watermark; got %s", resp.LastSync)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("expected no items")
	}
}

func TestBatchResponseCounts(t *testing.T) {
	resp := &SyncBatchResponse{}
	resp.add(OpResult{Outcome: OutcomeCreated})
	resp.add(OpResult{Outcome: OutcomeCreated})
	resp.add(OpResult{Outcome: OutcomeUpdated})
	resp.add(OpResult{Outcome: OutcomeUnchanged})
	resp.add(OpResult{Outcome: OutcomeFailed})

	if resp.Created != 2 || resp.Updated != 1 || resp.Unchanged != 1 || resp.Failed != 1 {
		t.Fatalf("counts out of step with results: %+v", resp)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("expected 5 results; got %d", len(resp.Results))
	}
}
