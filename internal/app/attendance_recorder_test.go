package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/record"
	"unisync/internal/infra/logger"
	"unisync/internal/infra/memstore"
)

func TestSubmitMarksOnlyUnmarkedStudents(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("S1", "S2", "S3")
	s1, s2, s3 := students[0].StudentID, students[1].StudentID, students[2].StudentID
	f.mark(t, sess, s1, attendance.StatusPresent)

	sub, err := f.recorder.Submit(context.Background(), sess, students, map[uuid.UUID]attendance.Status{
		s2: attendance.StatusPresent,
	})
	require.NoError(t, err)

	require.Len(t, sub.Inserted, 2)
	got := attendance.Marked(sub.Inserted)
	assert.Equal(t, attendance.StatusPresent, got[s2])
	assert.Equal(t, attendance.StatusAbsent, got[s3])
	assert.NotContains(t, got, s1)
	assert.Empty(t, sub.Conflicts)

	stored, err := f.records.ListBySession(context.Background(), sess.ID)
	require.NoError(t, err)
	all := attendance.Marked(stored)
	assert.Len(t, all, 3)
	assert.Equal(t, attendance.StatusPresent, all[s1])
	assert.Equal(t, all, sub.Marked)
}

func TestSubmitInsertsExactlyUnmarkedCount(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A", "B", "C", "D", "E")
	f.mark(t, sess, students[0].StudentID, attendance.StatusAbsent)
	f.mark(t, sess, students[3].StudentID, attendance.StatusPresent)

	sub, err := f.recorder.Submit(context.Background(), sess, students, nil)
	require.NoError(t, err)

	assert.Len(t, sub.Inserted, 3)
	for _, rec := range sub.Inserted {
		assert.Equal(t, attendance.StatusAbsent, rec.Status)
		assert.Equal(t, sess.ID, rec.SessionID)
		assert.Equal(t, sess.CourseID, rec.CourseID)
		assert.Equal(t, sess.Date, rec.Date)
	}
	assert.Equal(t, 5, f.db.RecordCount())
}

func TestSubmitWithEveryoneMarkedIsNothingToSubmit(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A", "B")
	for _, st := range students {
		f.mark(t, sess, st.StudentID, attendance.StatusPresent)
	}

	sub, err := f.recorder.Submit(context.Background(), sess, students, map[uuid.UUID]attendance.Status{
		students[0].StudentID: attendance.StatusAbsent,
	})
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, ErrNothingToSubmit)
	assert.True(t, IsSoftFailure(err))
	assert.Equal(t, 2, f.db.RecordCount())
	assert.Equal(t, []string{OutcomeNothingToSubmit}, f.metrics.outcomes)
}

func TestSubmitWithEmptyRosterIsNothingToSubmit(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")

	_, err := f.recorder.Submit(context.Background(), sess, nil, nil)
	assert.ErrorIs(t, err, ErrNothingToSubmit)
}

func TestSubmitRejectsInvalidStatusBeforeStoreAccess(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A")
	f.db.Fail(memstore.OpListAttendance, errors.New("must not be called"))

	_, err := f.recorder.Submit(context.Background(), sess, students, map[uuid.UUID]attendance.Status{
		students[0].StudentID: "late",
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, 0, f.db.RecordCount())
}

func TestSubmitIgnoresMarksOutsideRoster(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A")
	stranger := uuid.New()

	sub, err := f.recorder.Submit(context.Background(), sess, students, map[uuid.UUID]attendance.Status{
		stranger:              attendance.StatusPresent,
		students[0].StudentID: attendance.StatusPresent,
	})
	require.NoError(t, err)
	require.Len(t, sub.Inserted, 1)
	assert.Equal(t, students[0].StudentID, sub.Inserted[0].StudentID)
	assert.NotContains(t, sub.Marked, stranger)
}

func TestSubmitBatchFailureReportsStudentsAndWritesNothing(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A", "B", "C")
	f.mark(t, sess, students[0].StudentID, attendance.StatusPresent)
	f.db.Fail(memstore.OpBulkCreate, fmt.Errorf("write: %w", record.ErrUnavailable))

	_, err := f.recorder.Submit(context.Background(), sess, students, nil)
	var failed *SubmitFailedError
	require.ErrorAs(t, err, &failed)
	assert.ElementsMatch(t, []uuid.UUID{students[1].StudentID, students[2].StudentID}, failed.StudentIDs)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 1, f.db.RecordCount())
	assert.Empty(t, f.cache.entries)
}

func TestSubmitFetchFailureIsSubmitFailed(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A")
	f.db.Fail(memstore.OpListAttendance, fmt.Errorf("timeout: %w", record.ErrUnavailable))

	_, err := f.recorder.Submit(context.Background(), sess, students, nil)
	var failed *SubmitFailedError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

// racingRepository lets another submission win a student between our read and our insert.
type racingRepository struct {
	attendance.Repository
	winner *attendance.Record
	once   bool
}

func (r *racingRepository) BulkCreate(ctx context.Context, records []*attendance.Record) ([]*attendance.Record, error) {
	if !r.once {
		r.once = true
		if _, err := r.Repository.BulkCreate(ctx, []*attendance.Record{r.winner}); err != nil {
			return nil, err
		}
	}
	return r.Repository.BulkCreate(ctx, records)
}

func TestSubmitConcurrentMarkIsSoftConflict(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A", "B")
	racer := &racingRepository{
		Repository: f.records,
		winner: &attendance.Record{
			SessionID: sess.ID,
			CourseID:  sess.CourseID,
			StudentID: students[0].StudentID,
			Status:    attendance.StatusPresent,
			Date:      sess.Date,
		},
	}
	recorder := NewAttendanceRecorder(racer, f.cache, nil, logger.Discard())

	sub, err := recorder.Submit(context.Background(), sess, students, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{students[0].StudentID}, sub.Conflicts)
	require.Len(t, sub.Inserted, 1)
	assert.Equal(t, students[1].StudentID, sub.Inserted[0].StudentID)
	// The earlier mark wins and is never overwritten.
	assert.Equal(t, attendance.StatusPresent, sub.Marked[students[0].StudentID])
	assert.Equal(t, attendance.StatusAbsent, sub.Marked[students[1].StudentID])
	assert.Equal(t, 2, f.db.RecordCount())
}

func TestSubmitExtendsMarkedCache(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A", "B")

	_, err := f.recorder.Submit(context.Background(), sess, students, map[uuid.UUID]attendance.Status{
		students[1].StudentID: attendance.StatusPresent,
	})
	require.NoError(t, err)

	cached, ok, err := f.cache.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, attendance.StatusAbsent, cached[students[0].StudentID])
	assert.Equal(t, attendance.StatusPresent, cached[students[1].StudentID])
}

func TestSubmitSurvivesCacheFailure(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, monday(0, 0), "09:00", "10:00")
	students := f.enroll("A")
	f.cache.err = errors.New("redis down")

	sub, err := f.recorder.Submit(context.Background(), sess, students, nil)
	require.NoError(t, err)
	assert.Len(t, sub.Inserted, 1)
	assert.Equal(t, []string{OutcomeSubmitted}, f.metrics.outcomes)
}

func TestSubmitAfterResolveMaterializedSession(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, time.Monday, "09:00", "10:00")
	students := f.enroll("A", "B")
	ctx := context.Background()

	res, err := f.resolver.Resolve(ctx, f.courseID, f.instructorID, monday(9, 15))
	require.NoError(t, err)
	require.True(t, res.Active())

	_, err = f.recorder.Submit(ctx, res.Session, students, nil)
	require.NoError(t, err)
	_, err = f.recorder.Submit(ctx, res.Session, students, nil)
	assert.ErrorIs(t, err, ErrNothingToSubmit)
	assert.Equal(t, 2, f.db.RecordCount())
}

func TestSubmitInvalidatesCacheWhenExtendFails(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, time.Monday, "09:00", "10:00")
	students := f.enroll("A", "B")
	ctx := context.Background()

	rc, err := f.reports.RollCall(ctx, f.courseID, f.instructorID, monday(9, 30))
	require.NoError(t, err)
	f.mark(t, rc.Resolution.Session, students[0].StudentID, attendance.StatusPresent)
	// Primes the cache with the partial mapping {A}.
	_, err = f.reports.RollCall(ctx, f.courseID, f.instructorID, monday(9, 35))
	require.NoError(t, err)
	require.Contains(t, f.cache.entries, rc.Resolution.Session.ID)

	f.cache.extendErr = errors.New("redis write timeout")
	_, err = f.recorder.Submit(ctx, rc.Resolution.Session, students, nil)
	require.NoError(t, err)
	f.cache.extendErr = nil
	assert.NotContains(t, f.cache.entries, rc.Resolution.Session.ID)

	rc, err = f.reports.RollCall(ctx, f.courseID, f.instructorID, monday(9, 40))
	require.NoError(t, err)
	assert.False(t, rc.CanSubmit)
	assert.Len(t, rc.Marked, 2)
	assert.Equal(t, 2, f.db.RecordCount())
}
