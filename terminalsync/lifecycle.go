package terminalsync

import (
	"bitbucket.org/mmdatafocus/possync_backend/models"
)

// nextStatus decides the stored status when an op arrives for an existing
// row. Forward transitions (draft->confirmed, draft->deleted,
// confirmed->deleted) are taken; regressions are silently ignored so a stale
// terminal replaying an old "draft" cannot un-confirm a row. "deleted" is
// terminal.
//
// The returned bool reports whether the status actually moves.
func nextStatus(current, incoming models.LifecycleStatus) (models.LifecycleStatus, bool) {
	if incoming == "" || incoming == current {
		return current, false
	}
	switch current {
	case models.LifecycleStatusDraft:
		if incoming == models.LifecycleStatusConfirmed || incoming == models.LifecycleStatusDeleted {
			return incoming, true
		}
	case models.LifecycleStatusConfirmed:
		if incoming == models.LifecycleStatusDeleted {
			return incoming, true
		}
	case models.LifecycleStatusDeleted:
		// no way back
	}
	return current, false
}

// defaultReviewed fills reviewed_by_desktop when the op did not send it.
// Ops carrying full terminal provenance (terminal id AND a non-zero local op
// seq) come from an offline-capable terminal that already reviewed the entry
// locally, so they are trusted. Anything without that provenance is an
// online-only submission and waits for a desktop look.
func defaultReviewed(explicit *bool, terminalId string, localOpSeq *int64) *bool {
	if explicit != nil {
		return explicit
	}
	v := terminalId != "" && localOpSeq != nil && *localOpSeq != 0
	return &v
}

// initialStatus validates the op's status for a brand-new row, applying the
// per-entity default when the terminal sent none.
func initialStatus(incoming, fallback models.LifecycleStatus) (models.LifecycleStatus, error) {
	if incoming == "" {
		return fallback, nil
	}
	if !incoming.Valid() {
		return "", &ValidationError{Field: "status", Reason: "must be draft, confirmed or deleted"}
	}
	return incoming, nil
}
