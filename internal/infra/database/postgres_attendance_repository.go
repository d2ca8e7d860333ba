package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/session"
)

type PostgresAttendanceRepository struct {
	db *sql.DB
}

func NewPostgresAttendanceRepository(db *sql.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{db: db}
}

const attendanceColumns = `id, session_id, course_id, student_id, status, date, created_at`

func scanAttendances(rows *sql.Rows) ([]*attendance.Record, error) {
	records := make([]*attendance.Record, 0)
	for rows.Next() {
		rec := &attendance.Record{}
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.CourseID, &rec.StudentID, &rec.Status, &rec.Date, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning attendance row: %w", err)
		}
		rec.Date = session.DateOf(rec.Date)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", classify(err))
	}
	return records, nil
}

func (r *PostgresAttendanceRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*attendance.Record, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE session_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying attendance by session: %w", classify(err))
	}
	defer rows.Close()
	return scanAttendances(rows)
}

// BulkCreate writes the batch in one transaction. Rows that hit the
// (session_id, student_id) constraint are skipped by ON CONFLICT and left
// out of the result.
func (r *PostgresAttendanceRepository) BulkCreate(ctx context.Context, records []*attendance.Record) ([]*attendance.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for bulk create: %w", classify(err))
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO attendances (id, session_id, course_id, student_id, status, date)
                                         VALUES ($1, $2, $3, $4, $5, $6::date)
                                         ON CONFLICT ON CONSTRAINT `+constraintAttendanceStudent+` DO NOTHING
                                         RETURNING created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for bulk create: %w", classify(err))
	}
	defer stmt.Close()

	inserted := make([]*attendance.Record, 0, len(records))
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		err := stmt.QueryRowContext(ctx, rec.ID, rec.SessionID, rec.CourseID, rec.StudentID, rec.Status, session.DateOf(rec.Date)).Scan(&rec.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue // already marked by a concurrent submission
		}
		if err != nil {
			return nil, fmt.Errorf("error executing statement for bulk create (session %s, student %s): %w", rec.SessionID, rec.StudentID, classify(err))
		}
		inserted = append(inserted, rec)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit attendance batch: %w", classify(err))
	}
	return inserted, nil
}

func (r *PostgresAttendanceRepository) TallyBySessions(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]attendance.Tally, error) {
	tallies := make(map[uuid.UUID]attendance.Tally, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return tallies, nil
	}

	ids := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		ids[i] = id.String()
	}

	query := `SELECT session_id, status, COUNT(*)
               FROM attendances
               WHERE session_id = ANY($1::uuid[])
               GROUP BY session_id, status`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error counting attendance by session: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID uuid.UUID
			status    attendance.Status
			count     int
		)
		if err := rows.Scan(&sessionID, &status, &count); err != nil {
			return nil, fmt.Errorf("error scanning attendance tally: %w", err)
		}
		t := tallies[sessionID]
		switch status {
		case attendance.StatusPresent:
			t.Present += count
		case attendance.StatusAbsent:
			t.Absent += count
		}
		tallies[sessionID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance tallies: %w", classify(err))
	}
	return tallies, nil
}

func (r *PostgresAttendanceRepository) ListByStudent(ctx context.Context, courseID, studentID uuid.UUID) ([]*attendance.Record, error) {
	query := `SELECT ` + attendanceColumns + `
               FROM attendances
               WHERE course_id = $1 AND student_id = $2
               ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("error querying attendance by student: %w", classify(err))
	}
	defer rows.Close()
	return scanAttendances(rows)
}
