package workflow

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	if backoff(1) != 2*time.Second {
		t.Fatalf("attempt 1: got %s", backoff(1))
	}
	if backoff(3) != 8*time.Second {
		t.Fatalf("attempt 3: got %s", backoff(3))
	}
	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := backoff(attempt)
		if d < prev {
			t.Fatalf("backoff must be monotonic; attempt %d gave %s after %s", attempt, d, prev)
		}
		if d > 5*time.Minute {
			t.Fatalf("backoff must cap at 5m; attempt %d gave %s", attempt, d)
		}
		prev = d
	}
}
