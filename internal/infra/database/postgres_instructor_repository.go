package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"unisync/internal/domain/instructor"
)

type PostgresInstructorRepository struct {
	db *sql.DB
}

func NewPostgresInstructorRepository(db *sql.DB) *PostgresInstructorRepository {
	return &PostgresInstructorRepository{db: db}
}

const instructorColumns = `id, telegram_id, first_name, last_name, is_active, created_at, updated_at`

func scanInstructor(row interface{ Scan(...any) error }) (*instructor.Instructor, error) {
	i := &instructor.Instructor{}
	err := row.Scan(&i.ID, &i.TelegramID, &i.FirstName, &i.LastName, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (r *PostgresInstructorRepository) GetByID(ctx context.Context, id uuid.UUID) (*instructor.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE id = $1`
	i, err := scanInstructor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, instructor.ErrNotFound
		}
		return nil, fmt.Errorf("error getting instructor by ID: %w", classify(err))
	}
	return i, nil
}

func (r *PostgresInstructorRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*instructor.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE telegram_id = $1`
	i, err := scanInstructor(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, instructor.ErrNotFound
		}
		return nil, fmt.Errorf("error getting instructor by Telegram ID: %w", classify(err))
	}
	return i, nil
}

func (r *PostgresInstructorRepository) SetTelegramID(ctx context.Context, id uuid.UUID, telegramID int64) error {
	link := sql.NullInt64{Int64: telegramID, Valid: telegramID != 0}
	query := `UPDATE instructors
               SET telegram_id = $1, updated_at = NOW()
               WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, link, id)
	if err != nil {
		if isUniqueViolation(err, constraintTelegramID) {
			return instructor.ErrTelegramIDInUse
		}
		return fmt.Errorf("error updating instructor telegram ID: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return instructor.ErrNotFound
	}
	return nil
}

func (r *PostgresInstructorRepository) ListActive(ctx context.Context) ([]*instructor.Instructor, error) {
	query := `SELECT ` + instructorColumns + `
               FROM instructors WHERE is_active = TRUE ORDER BY first_name, last_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active instructors: %w", classify(err))
	}
	defer rows.Close()

	instructors := make([]*instructor.Instructor, 0)
	for rows.Next() {
		i, err := scanInstructor(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning active instructor: %w", err)
		}
		instructors = append(instructors, i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active instructors: %w", classify(err))
	}
	return instructors, nil
}
