package terminalsync

import (
	"testing"

	"bitbucket.org/mmdatafocus/possync_backend/models"
)

func TestNextStatusForwardTransitions(t *testing.T) {
	cases := []struct {
		name     string
		current  models.LifecycleStatus
		incoming models.LifecycleStatus
		want     models.LifecycleStatus
		moved    bool
	}{
		{"draft to confirmed", models.LifecycleStatusDraft, models.LifecycleStatusConfirmed, models.LifecycleStatusConfirmed, true},
		{"draft to deleted", models.LifecycleStatusDraft, models.LifecycleStatusDeleted, models.LifecycleStatusDeleted, true},
		{"confirmed to deleted", models.LifecycleStatusConfirmed, models.LifecycleStatusDeleted, models.LifecycleStatusDeleted, true},
		{"same status is a no-op", models.LifecycleStatusConfirmed, models.LifecycleStatusConfirmed, models.LifecycleStatusConfirmed, false},
		{"empty incoming keeps current", models.LifecycleStatusDraft, "", models.LifecycleStatusDraft, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, moved := nextStatus(tc.current, tc.incoming)
			if got != tc.want || moved != tc.moved {
				t.Fatalf("nextStatus(%s, %s) = (%s, %v); want (%s, %v)",
					tc.current, tc.incoming, got, moved, tc.want, tc.moved)
			}
		})
	}
}

func TestNextStatusRegressionsAreIgnored(t *testing.T) {
	// a stale terminal replaying an old draft must not un-confirm a row
	cases := []struct {
		current  models.LifecycleStatus
		incoming models.LifecycleStatus
	}{
		{models.LifecycleStatusConfirmed, models.LifecycleStatusDraft},
		{models.LifecycleStatusDeleted, models.LifecycleStatusDraft},
		{models.LifecycleStatusDeleted, models.LifecycleStatusConfirmed},
	}
	for _, tc := range cases {
		got, moved := nextStatus(tc.current, tc.incoming)
		if moved || got != tc.current {
			t.Fatalf("nextStatus(%s, %s) = (%s, %v); regression must keep %s",
				tc.current, tc.incoming, got, moved, tc.current)
		}
	}
}

func TestDefaultReviewed(t *testing.T) {
	seq := int64(42)
	zero := int64(0)
	falsev := false

	// explicit value always wins, even against full provenance
	if got := defaultReviewed(&falsev, "T1", &seq); got == nil || *got {
		t.Fatalf("explicit reviewed flag must be preserved")
	}

	// full terminal provenance means the terminal reviewed it locally
	if got := defaultReviewed(nil, "T1", &seq); got == nil || !*got {
		t.Fatalf("offline-capable terminal op must default to reviewed")
	}

	// anything short of full provenance is an online submission pending review
	if got := defaultReviewed(nil, "", &seq); got == nil || *got {
		t.Fatalf("op without terminal id must default to unreviewed")
	}
	if got := defaultReviewed(nil, "T1", nil); got == nil || *got {
		t.Fatalf("op without local op seq must default to unreviewed")
	}
	if got := defaultReviewed(nil, "T1", &zero); got == nil || *got {
		t.Fatalf("zero local op seq is not provenance; must default to unreviewed")
	}
}

func TestInitialStatus(t *testing.T) {
	got, err := initialStatus("", models.LifecycleStatusDraft)
	if err != nil || got != models.LifecycleStatusDraft {
		t.Fatalf("empty status must fall back to the entity default; got (%s, %v)", got, err)
	}

	got, err = initialStatus(models.LifecycleStatusConfirmed, models.LifecycleStatusDraft)
	if err != nil || got != models.LifecycleStatusConfirmed {
		t.Fatalf("valid status must be kept; got (%s, %v)", got, err)
	}

	if _, err = initialStatus("bogus", models.LifecycleStatusDraft); err == nil {
		t.Fatalf("invalid status must be rejected")
	}
}
