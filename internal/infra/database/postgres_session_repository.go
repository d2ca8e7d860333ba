package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unisync/internal/domain/session"
)

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

const sessionColumns = `session_id, course_id, instructor_id, session_date, start_time, end_time, room_number, template_id, created_at`

func scanSession(row interface{ Scan(...any) error }) (*session.CourseSession, error) {
	s := &session.CourseSession{}
	err := row.Scan(&s.ID, &s.CourseID, &s.InstructorID, &s.Date, &s.StartTime, &s.EndTime, &s.Room, &s.TemplateID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Date = session.DateOf(s.Date)
	return s, nil
}

// Helper to scan multiple rows
func scanSessions(rows *sql.Rows) ([]*session.CourseSession, error) {
	sessions := make([]*session.CourseSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning class session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating class session rows: %w", classify(err))
	}
	return sessions, nil
}

func (r *PostgresSessionRepository) getOne(ctx context.Context, what, query string, args ...any) (*session.CourseSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("error getting class session %s: %w", what, classify(err))
	}
	return s, nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.CourseSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE session_id = $1`
	return r.getOne(ctx, "by ID", query, id)
}

func (r *PostgresSessionRepository) FindActive(ctx context.Context, courseID, instructorID uuid.UUID, date time.Time, at session.TimeOfDay) (*session.CourseSession, error) {
	query := `SELECT ` + sessionColumns + `
               FROM class_sessions
               WHERE course_id = $1 AND instructor_id = $2 AND session_date = $3::date
                 AND start_time <= $4::time AND end_time >= $4::time
               ORDER BY start_time
               LIMIT 1`
	return r.getOne(ctx, "active now", query, courseID, instructorID, session.DateOf(date), at)
}

func (r *PostgresSessionRepository) GetByDate(ctx context.Context, courseID, instructorID uuid.UUID, date time.Time) (*session.CourseSession, error) {
	query := `SELECT ` + sessionColumns + `
               FROM class_sessions
               WHERE course_id = $1 AND instructor_id = $2 AND session_date = $3::date`
	return r.getOne(ctx, "by date", query, courseID, instructorID, session.DateOf(date))
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *session.CourseSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Date = session.DateOf(s.Date)
	query := `INSERT INTO class_sessions (session_id, course_id, instructor_id, session_date, start_time, end_time, room_number, template_id)
               VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.CourseID, s.InstructorID, s.Date, s.StartTime, s.EndTime, s.Room, s.TemplateID,
	).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintSessionDate) {
			return session.ErrDuplicate
		}
		return fmt.Errorf("error creating class session: %w", classify(err))
	}
	return nil
}

func (r *PostgresSessionRepository) ListBetween(ctx context.Context, courseID, instructorID uuid.UUID, from, to time.Time) ([]*session.CourseSession, error) {
	query := `SELECT ` + sessionColumns + `
               FROM class_sessions
               WHERE course_id = $1 AND instructor_id = $2
                 AND session_date >= $3::date AND session_date < $4::date
               ORDER BY session_date, start_time`
	rows, err := r.db.QueryContext(ctx, query, courseID, instructorID, session.DateOf(from), session.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("error querying class sessions between dates: %w", classify(err))
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *PostgresSessionRepository) ListByCourse(ctx context.Context, courseID uuid.UUID, through time.Time) ([]*session.CourseSession, error) {
	query := `SELECT ` + sessionColumns + `
               FROM class_sessions
               WHERE course_id = $1 AND session_date <= $2::date
               ORDER BY session_date, start_time`
	rows, err := r.db.QueryContext(ctx, query, courseID, session.DateOf(through))
	if err != nil {
		return nil, fmt.Errorf("error querying class sessions of course: %w", classify(err))
	}
	defer rows.Close()
	return scanSessions(rows)
}
