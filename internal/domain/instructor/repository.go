package instructor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("instructor not found")
	ErrTelegramIDInUse = errors.New("telegram ID is already linked to another instructor")
)

// Repository defines the operations for the instructor directory.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Instructor, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Instructor, error)
	// SetTelegramID links (or, with a zero value, unlinks) the bot chat of an instructor.
	SetTelegramID(ctx context.Context, id uuid.UUID, telegramID int64) error
	ListActive(ctx context.Context) ([]*Instructor, error)
}
