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

// PostgresTemplateRepository reads the 'recurring_sessions' timetable.
type PostgresTemplateRepository struct {
	db *sql.DB
}

func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

const templateColumns = `id, course_id, instructor_id, day_of_week, start_time, end_time, room_number`

func scanTemplate(row interface{ Scan(...any) error }) (*session.RecurringTemplate, error) {
	t := &session.RecurringTemplate{}
	var day int16
	if err := row.Scan(&t.ID, &t.CourseID, &t.InstructorID, &day, &t.StartTime, &t.EndTime, &t.Room); err != nil {
		return nil, err
	}
	t.DayOfWeek = time.Weekday(day)
	return t, nil
}

func (r *PostgresTemplateRepository) FindForDay(ctx context.Context, courseID, instructorID uuid.UUID, day time.Weekday) (*session.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + `
               FROM recurring_sessions
               WHERE course_id = $1 AND instructor_id = $2 AND day_of_week = $3`
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, courseID, instructorID, int16(day)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("error getting recurring session: %w", classify(err))
	}
	return t, nil
}

func (r *PostgresTemplateRepository) ListForDay(ctx context.Context, day time.Weekday) ([]*session.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + `
               FROM recurring_sessions
               WHERE day_of_week = $1
               ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, query, int16(day))
	if err != nil {
		return nil, fmt.Errorf("error listing recurring sessions for day: %w", classify(err))
	}
	defer rows.Close()

	templates := make([]*session.RecurringTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning recurring session: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring sessions: %w", classify(err))
	}
	return templates, nil
}
