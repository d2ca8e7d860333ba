package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
)

// Submission describes what a successful Submit wrote.
type Submission struct {
	Session  *session.CourseSession
	Inserted []*attendance.Record
	// Conflicts lists students another submission marked between our check
	// and our insert. Their winning marks are included in Marked.
	Conflicts []uuid.UUID
	// Marked is the complete "already marked" mapping for the session after the submission.
	Marked map[uuid.UUID]attendance.Status
}

// AttendanceRecorder records one mark per student per session, exactly once.
type AttendanceRecorder struct {
	records attendance.Repository
	cache   MarkedCache
	metrics Metrics
	logger  *logrus.Entry
}

func NewAttendanceRecorder(records attendance.Repository, cache MarkedCache, metrics Metrics, logger *logrus.Entry) *AttendanceRecorder {
	if cache == nil {
		cache = NopMarkedCache{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AttendanceRecorder{
		records: records,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Submit records attendance for every student of students not yet marked in
// sess. Students missing from marks default to absent. Existing marks are
// never touched.
func (r *AttendanceRecorder) Submit(
	ctx context.Context,
	sess *session.CourseSession,
	students []roster.Entry,
	marks map[uuid.UUID]attendance.Status,
) (*Submission, error) {
	logCtx := r.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"course_id":  sess.CourseID,
	})

	for studentID, status := range marks {
		if !status.Valid() {
			r.metrics.ObserveSubmission(OutcomeInvalid, 0)
			return nil, fmt.Errorf("%w %q for student %s", ErrInvalidStatus, status, studentID)
		}
	}

	existing, err := r.records.ListBySession(ctx, sess.ID)
	if err != nil {
		r.metrics.ObserveSubmission(OutcomeFailed, 0)
		logCtx.WithError(err).Error("Failed to fetch existing attendance")
		return nil, &SubmitFailedError{Err: fmt.Errorf("failed to fetch existing attendance: %w", err)}
	}
	marked := attendance.Marked(existing)

	pending := make([]*attendance.Record, 0, len(students))
	for _, st := range students {
		if _, done := marked[st.StudentID]; done {
			continue
		}
		status, ok := marks[st.StudentID]
		if !ok {
			status = attendance.DefaultStatus
		}
		pending = append(pending, &attendance.Record{
			ID:        uuid.New(),
			SessionID: sess.ID,
			CourseID:  sess.CourseID,
			StudentID: st.StudentID,
			Status:    status,
			Date:      sess.Date,
		})
	}
	if len(pending) == 0 {
		r.metrics.ObserveSubmission(OutcomeNothingToSubmit, 0)
		logCtx.Info("Every student is already marked, nothing to submit")
		return nil, ErrNothingToSubmit
	}

	inserted, err := r.records.BulkCreate(ctx, pending)
	if err != nil {
		r.metrics.ObserveSubmission(OutcomeFailed, 0)
		ids := make([]uuid.UUID, 0, len(pending))
		for _, rec := range pending {
			ids = append(ids, rec.StudentID)
		}
		logCtx.WithError(err).WithField("students", len(ids)).Error("Attendance batch insert failed")
		return nil, &SubmitFailedError{StudentIDs: ids, Err: err}
	}

	sub := &Submission{Session: sess, Inserted: inserted}
	for _, rec := range inserted {
		marked[rec.StudentID] = rec.Status
	}
	for _, rec := range pending {
		if _, ok := marked[rec.StudentID]; !ok {
			sub.Conflicts = append(sub.Conflicts, rec.StudentID)
		}
	}
	if len(sub.Conflicts) > 0 {
		logCtx.WithField("conflicts", len(sub.Conflicts)).Warn("Some students were marked concurrently, keeping the earlier marks")
		if latest, err := r.records.ListBySession(ctx, sess.ID); err == nil {
			marked = attendance.Marked(latest)
		} else {
			logCtx.WithError(err).Warn("Failed to re-fetch attendance after conflicting insert")
		}
	}
	sub.Marked = marked

	if err := r.cache.Extend(ctx, sess.ID, marked); err != nil {
		// A stale partial mapping would show recorded students as unmarked.
		logCtx.WithError(err).Warn("Failed to extend marked attendance cache, invalidating it")
		if err := r.cache.Invalidate(ctx, sess.ID); err != nil {
			logCtx.WithError(err).Error("Failed to invalidate marked attendance cache")
		}
	}

	r.metrics.ObserveSubmission(OutcomeSubmitted, len(inserted))
	logCtx.WithField("inserted", len(inserted)).Info("Attendance submitted")
	return sub, nil
}

// IsSoftFailure reports errors the caller should present as information
// rather than as an error banner.
func IsSoftFailure(err error) bool {
	return errors.Is(err, ErrNothingToSubmit)
}
