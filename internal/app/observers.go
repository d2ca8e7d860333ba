package app

import (
	"context"

	"github.com/google/uuid"

	"unisync/internal/domain/attendance"
)

// Submission outcomes reported to Metrics.
const (
	OutcomeSubmitted       = "submitted"
	OutcomeNothingToSubmit = "nothing_to_submit"
	OutcomeInvalid         = "invalid"
	OutcomeFailed          = "failed"
)

// Metrics receives workflow counters.
type Metrics interface {
	ObserveResolution(state ResolutionState)
	ObserveSubmission(outcome string, inserted int)
}

// MarkedCache keeps the "already marked" mapping per session for rendering.
// It is a read aid only: the recorder always checks the record store.
type MarkedCache interface {
	Load(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]attendance.Status, bool, error)
	Extend(ctx context.Context, sessionID uuid.UUID, marked map[uuid.UUID]attendance.Status) error
	// Invalidate drops the session's mapping so the next read goes to the record store.
	Invalidate(ctx context.Context, sessionID uuid.UUID) error
}

type nopMetrics struct{}

func (nopMetrics) ObserveResolution(ResolutionState) {}
func (nopMetrics) ObserveSubmission(string, int)     {}

// NopMarkedCache is used when no cache backend is configured.
type NopMarkedCache struct{}

func (NopMarkedCache) Load(context.Context, uuid.UUID) (map[uuid.UUID]attendance.Status, bool, error) {
	return nil, false, nil
}

func (NopMarkedCache) Extend(context.Context, uuid.UUID, map[uuid.UUID]attendance.Status) error {
	return nil
}

func (NopMarkedCache) Invalidate(context.Context, uuid.UUID) error {
	return nil
}
