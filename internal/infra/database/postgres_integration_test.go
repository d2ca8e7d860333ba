package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/session"
)

// openTestDB connects to TEST_DATABASE_URL and applies migrations.
// Rows are keyed by fresh UUIDs so the database can be reused across runs.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewPostgresConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return db
}

func seedInstructor(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO instructors (id, first_name) VALUES ($1, $2)`, id, "Test")
	require.NoError(t, err)
	return id
}

func newTestSession(t *testing.T, courseID, instructorID uuid.UUID, date time.Time) *session.CourseSession {
	t.Helper()
	start, err := session.ParseTimeOfDay("09:00")
	require.NoError(t, err)
	end, err := session.ParseTimeOfDay("10:30")
	require.NoError(t, err)
	return &session.CourseSession{
		CourseID:     courseID,
		InstructorID: instructorID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		Room:         "B-204",
	}
}

func TestPostgresSessionCreateSameDateIsDuplicate(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresSessionRepository(db)
	ctx := context.Background()
	courseID, instructorID := uuid.New(), seedInstructor(t, db)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newTestSession(t, courseID, instructorID, date)
	require.NoError(t, repo.Create(ctx, first))

	second := newTestSession(t, courseID, instructorID, date)
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, session.ErrDuplicate)

	got, err := repo.GetByDate(ctx, courseID, instructorID, date)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	// The raw driver error carries the constraint name the mapping depends on.
	_, err = db.ExecContext(ctx,
		`INSERT INTO class_sessions (session_id, course_id, instructor_id, session_date, start_time, end_time)
         VALUES ($1, $2, $3, $4::date, '11:00', '12:00')`,
		uuid.New(), courseID, instructorID, date)
	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr), "expected pq error, got %v", err)
	assert.True(t, isUniqueViolation(err, constraintSessionDate))
}

func TestPostgresBulkCreateSkipsAlreadyMarked(t *testing.T) {
	db := openTestDB(t)
	sessions := NewPostgresSessionRepository(db)
	records := NewPostgresAttendanceRepository(db)
	ctx := context.Background()
	courseID := uuid.New()
	sess := newTestSession(t, courseID, seedInstructor(t, db), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, sessions.Create(ctx, sess))

	record := func(studentID uuid.UUID, status attendance.Status) *attendance.Record {
		return &attendance.Record{
			SessionID: sess.ID,
			CourseID:  courseID,
			StudentID: studentID,
			Status:    status,
			Date:      sess.Date,
		}
	}
	early, late := uuid.New(), uuid.New()

	inserted, err := records.BulkCreate(ctx, []*attendance.Record{record(early, attendance.StatusPresent)})
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	inserted, err = records.BulkCreate(ctx, []*attendance.Record{
		record(early, attendance.StatusAbsent),
		record(late, attendance.StatusAbsent),
	})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, late, inserted[0].StudentID)
	assert.False(t, inserted[0].CreatedAt.IsZero())

	stored, err := records.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	marked := attendance.Marked(stored)
	assert.Len(t, marked, 2)
	// The first write wins.
	assert.Equal(t, attendance.StatusPresent, marked[early])
	assert.Equal(t, attendance.StatusAbsent, marked[late])
}
