package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("class session not found")
	ErrTemplateNotFound = errors.New("recurring session not found")
	// ErrDuplicate is returned by Create when a session already exists for
	// the same (course, instructor, session_date).
	ErrDuplicate = errors.New("class session already exists for course, instructor and date")
)

// Repository defines operations for CourseSession rows.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CourseSession, error)
	// FindActive returns the session on date whose window contains at.
	FindActive(ctx context.Context, courseID, instructorID uuid.UUID, date time.Time, at TimeOfDay) (*CourseSession, error)
	GetByDate(ctx context.Context, courseID, instructorID uuid.UUID, date time.Time) (*CourseSession, error)
	Create(ctx context.Context, s *CourseSession) error
	// ListBetween returns sessions with from <= session_date < to, oldest first.
	ListBetween(ctx context.Context, courseID, instructorID uuid.UUID, from, to time.Time) ([]*CourseSession, error)
	// ListByCourse returns every session of the course up to and including through.
	ListByCourse(ctx context.Context, courseID uuid.UUID, through time.Time) ([]*CourseSession, error)
}

// TemplateRepository reads the weekly timetable. It is owned by scheduling
// configuration; this service never writes it.
type TemplateRepository interface {
	FindForDay(ctx context.Context, courseID, instructorID uuid.UUID, day time.Weekday) (*RecurringTemplate, error)
	ListForDay(ctx context.Context, day time.Weekday) ([]*RecurringTemplate, error)
}
