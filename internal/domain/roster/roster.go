package roster

import (
	"context"

	"github.com/google/uuid"
)

// Entry is a student enrolled in a course.
type Entry struct {
	StudentID uuid.UUID `json:"student_id"`
	Name      string    `json:"name"`
}

// Provider returns course enrollment. This service never mutates it.
type Provider interface {
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]Entry, error)
}
