package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"unisync/internal/domain/session"
)

// ResolutionState tells how the session for "now" was obtained.
type ResolutionState string

const (
	StateNone               ResolutionState = "NONE"
	StateActiveExplicit     ResolutionState = "ACTIVE_EXPLICIT"
	StateActiveMaterialized ResolutionState = "ACTIVE_MATERIALIZED"
)

// Resolution is the outcome of a resolver call. Session is nil for StateNone.
type Resolution struct {
	State   ResolutionState
	Session *session.CourseSession
}

func (r *Resolution) Active() bool {
	return r != nil && r.Session != nil
}

// SessionResolver finds the single session attendance should be recorded
// against, materializing one from the weekly timetable when needed. Nothing
// is persisted about the resolution itself; every call recomputes it.
type SessionResolver struct {
	sessions  session.Repository
	templates session.TemplateRepository
	location  *time.Location
	metrics   Metrics
	logger    *logrus.Entry
}

func NewSessionResolver(
	sr session.Repository,
	tr session.TemplateRepository,
	location *time.Location,
	metrics Metrics,
	logger *logrus.Entry,
) *SessionResolver {
	if location == nil {
		location = time.UTC
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &SessionResolver{
		sessions:  sr,
		templates: tr,
		location:  location,
		metrics:   metrics,
		logger:    logger,
	}
}

// Location is the campus time zone "now" is interpreted in.
func (r *SessionResolver) Location() *time.Location {
	return r.location
}

// Resolve returns the session for (course, instructor) at now.
// Store failures are returned as-is (matching ErrStoreUnavailable when
// transient); the resolver never retries.
func (r *SessionResolver) Resolve(ctx context.Context, courseID, instructorID uuid.UUID, now time.Time) (*Resolution, error) {
	m := session.MomentOf(now, r.location)
	logCtx := r.logger.WithFields(logrus.Fields{
		"course_id":     courseID,
		"instructor_id": instructorID,
		"date":          m.Date.Format("2006-01-02"),
		"time":          m.Time.String(),
	})

	res, err := r.resolve(ctx, courseID, instructorID, m, logCtx)
	if err != nil {
		logCtx.WithError(err).Error("Session resolution failed")
		return nil, err
	}
	r.metrics.ObserveResolution(res.State)
	return res, nil
}

func (r *SessionResolver) resolve(ctx context.Context, courseID, instructorID uuid.UUID, m session.Moment, logCtx *logrus.Entry) (*Resolution, error) {
	existing, err := r.sessions.FindActive(ctx, courseID, instructorID, m.Date, m.Time)
	if err == nil {
		logCtx.WithField("session_id", existing.ID).Debug("Active session found")
		return &Resolution{State: StateActiveExplicit, Session: existing}, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}

	tmpl, err := r.templates.FindForDay(ctx, courseID, instructorID, m.Weekday)
	if err != nil {
		if errors.Is(err, session.ErrTemplateNotFound) {
			logCtx.Debug("No session and no recurring session for today")
			return &Resolution{State: StateNone}, nil
		}
		return nil, fmt.Errorf("failed to look up recurring session: %w", err)
	}
	if !tmpl.Contains(m.Time) {
		logCtx.WithField("template_id", tmpl.ID).Debug("Current time is outside the recurring session window")
		return &Resolution{State: StateNone}, nil
	}

	candidate := tmpl.Materialize(m.Date)
	err = r.sessions.Create(ctx, candidate)
	if err == nil {
		logCtx.WithFields(logrus.Fields{
			"session_id":  candidate.ID,
			"template_id": tmpl.ID,
		}).Info("Materialized class session from recurring session")
		return &Resolution{State: StateActiveMaterialized, Session: candidate}, nil
	}
	if !errors.Is(err, session.ErrDuplicate) {
		return nil, fmt.Errorf("failed to materialize session: %w", err)
	}

	// Lost the race to another caller: the winner's row is authoritative.
	winner, err := r.sessions.GetByDate(ctx, courseID, instructorID, m.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing session after duplicate insert: %w", err)
	}
	if !winner.Contains(m.Time) {
		logCtx.WithField("session_id", winner.ID).Info("Session for today already exists outside the current window")
		return &Resolution{State: StateNone}, nil
	}
	logCtx.WithField("session_id", winner.ID).Debug("Concurrent materialization detected, using existing session")
	return &Resolution{State: StateActiveExplicit, Session: winner}, nil
}
