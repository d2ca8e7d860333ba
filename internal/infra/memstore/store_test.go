package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
)

func newSession(courseID, instructorID uuid.UUID, date time.Time) *session.CourseSession {
	return &session.CourseSession{
		CourseID:     courseID,
		InstructorID: instructorID,
		Date:         date,
		StartTime:    session.NewTimeOfDay(9, 0, 0),
		EndTime:      session.NewTimeOfDay(10, 0, 0),
	}
}

func TestCreateEnforcesOneSessionPerDay(t *testing.T) {
	db := New()
	repo := NewSessionRepository(db)
	ctx := context.Background()
	course, inst := uuid.New(), uuid.New()

	first := newSession(course, inst, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)

	err := repo.Create(ctx, newSession(course, inst, time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, session.ErrDuplicate)

	// Another instructor on the same day is fine.
	require.NoError(t, repo.Create(ctx, newSession(course, uuid.New(), first.Date)))
	assert.Equal(t, 2, db.SessionCount())

	got, err := repo.GetByDate(ctx, course, inst, first.Date)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestFindActiveHonoursWindow(t *testing.T) {
	db := New()
	repo := NewSessionRepository(db)
	ctx := context.Background()
	course, inst := uuid.New(), uuid.New()
	s := newSession(course, inst, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindActive(ctx, course, inst, s.Date, session.NewTimeOfDay(10, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = repo.FindActive(ctx, course, inst, s.Date, session.NewTimeOfDay(10, 0, 1))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestBulkCreateSkipsExistingPairs(t *testing.T) {
	db := New()
	repo := NewAttendanceRepository(db)
	ctx := context.Background()
	sessionID, student := uuid.New(), uuid.New()

	first, err := repo.BulkCreate(ctx, []*attendance.Record{
		{SessionID: sessionID, StudentID: student, Status: attendance.StatusPresent},
	})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.False(t, first[0].CreatedAt.IsZero())

	second, err := repo.BulkCreate(ctx, []*attendance.Record{
		{SessionID: sessionID, StudentID: student, Status: attendance.StatusAbsent},
		{SessionID: sessionID, StudentID: uuid.New(), Status: attendance.StatusAbsent},
	})
	require.NoError(t, err)
	assert.Len(t, second, 1)

	records, err := repo.ListBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, attendance.Marked(records)[student])
}

func TestBulkCreateFailureWritesNothing(t *testing.T) {
	db := New()
	repo := NewAttendanceRepository(db)
	db.Fail(OpBulkCreate, errors.New("disk full"))

	_, err := repo.BulkCreate(context.Background(), []*attendance.Record{
		{SessionID: uuid.New(), StudentID: uuid.New(), Status: attendance.StatusPresent},
	})
	assert.Error(t, err)
	assert.Equal(t, 0, db.RecordCount())

	db.Fail(OpBulkCreate, nil)
	_, err = repo.BulkCreate(context.Background(), []*attendance.Record{
		{SessionID: uuid.New(), StudentID: uuid.New(), Status: attendance.StatusPresent},
	})
	assert.NoError(t, err)
}

func TestRosterIsSortedByName(t *testing.T) {
	db := New()
	course := uuid.New()
	db.Enroll(course,
		roster.Entry{StudentID: uuid.New(), Name: "Zoe"},
		roster.Entry{StudentID: uuid.New(), Name: "Adam"},
	)

	entries, err := NewRosterProvider(db).ListByCourse(context.Background(), course)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Adam", entries[0].Name)

	none, err := NewRosterProvider(db).ListByCourse(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
