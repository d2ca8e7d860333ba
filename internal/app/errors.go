package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"unisync/internal/domain/record"
)

var (
	// ErrStoreUnavailable is the transient record store failure; safe to retry with backoff.
	ErrStoreUnavailable = record.ErrUnavailable
	// ErrNothingToSubmit means every roster student already has a mark. Informational, not a failure.
	ErrNothingToSubmit = errors.New("no new attendance records to submit")
	ErrInvalidStatus   = errors.New("invalid attendance status")
	// ErrSessionNotOwned rejects a session that belongs to another course or instructor.
	ErrSessionNotOwned = errors.New("session does not belong to this course and instructor")
)

// SubmitFailedError reports an attendance batch the store refused.
// The batch is atomic, so none of StudentIDs were recorded.
type SubmitFailedError struct {
	StudentIDs []uuid.UUID
	Err        error
}

func (e *SubmitFailedError) Error() string {
	return fmt.Sprintf("failed to submit attendance for %d students: %v", len(e.StudentIDs), e.Err)
}

func (e *SubmitFailedError) Unwrap() error {
	return e.Err
}
