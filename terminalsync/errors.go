package terminalsync

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotFound = errors.New("record not found")

// ValidationError marks a malformed sync operation. The batch keeps going;
// only the offending op is reported as failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// MissingReferenceError signals a required reference whose global id does not
// resolve to any row for the tenant. Optional references never produce this;
// they are stored with a NULL foreign key and healed later.
type MissingReferenceError struct {
	Field    string
	GlobalId string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s %q does not resolve", e.Field, e.GlobalId)
}

// PrimaryConflictError is returned when a claim cannot displace the device
// that currently holds primacy. Holder names that device so the caller can
// tell the operator who to go talk to.
type PrimaryConflictError struct {
	Holder string
	Reason string
}

func (e *PrimaryConflictError) Error() string {
	if e.Holder == "" {
		return e.Reason
	}
	return fmt.Sprintf("primary held by %s: %s", e.Holder, e.Reason)
}

// HTTPStatusForError maps engine errors onto response codes.
func HTTPStatusForError(err error) int {
	var vErr *ValidationError
	var mErr *MissingReferenceError
	var pErr *PrimaryConflictError
	switch {
	case errors.Is(err, ErrNotFound), errors.As(err, &mErr):
		return http.StatusNotFound
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &pErr):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
