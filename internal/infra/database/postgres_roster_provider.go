package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"unisync/internal/domain/roster"
)

// PostgresRosterProvider reads course enrollment.
type PostgresRosterProvider struct {
	db *sql.DB
}

func NewPostgresRosterProvider(db *sql.DB) *PostgresRosterProvider {
	return &PostgresRosterProvider{db: db}
}

func (p *PostgresRosterProvider) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]roster.Entry, error) {
	query := `SELECT s.id, TRIM(s.first_name || ' ' || COALESCE(s.last_name, '')) AS name
               FROM enrollments e
               JOIN students s ON s.id = e.student_id
               WHERE e.course_id = $1
               ORDER BY name, s.id`
	rows, err := p.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("error querying course roster: %w", classify(err))
	}
	defer rows.Close()

	entries := make([]roster.Entry, 0)
	for rows.Next() {
		var e roster.Entry
		if err := rows.Scan(&e.StudentID, &e.Name); err != nil {
			return nil, fmt.Errorf("error scanning roster entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster: %w", classify(err))
	}
	return entries, nil
}
