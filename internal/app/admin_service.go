package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"unisync/internal/domain/instructor"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrInstructorInactive = fmt.Errorf("instructor is inactive")
var ErrInstructorNotLinked = fmt.Errorf("no instructor is linked to this Telegram ID")

type AdminService struct {
	instructorRepo  instructor.Repository
	adminTelegramID int64
}

func NewAdminService(ir instructor.Repository, adminID int64) *AdminService {
	return &AdminService{
		instructorRepo:  ir,
		adminTelegramID: adminID,
	}
}

// LinkInstructor attaches a Telegram chat to an instructor so session
// notifications and roll call buttons reach them.
func (s *AdminService) LinkInstructor(ctx context.Context, performingAdminID int64, instructorID uuid.UUID, telegramID int64) (*instructor.Instructor, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	if telegramID <= 0 {
		return nil, fmt.Errorf("invalid Telegram ID %d", telegramID)
	}

	target, err := s.instructorRepo.GetByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, instructor.ErrNotFound) {
			return nil, instructor.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get instructor for linking: %w", err)
	}
	if !target.IsActive {
		return target, ErrInstructorInactive
	}

	existing, err := s.instructorRepo.GetByTelegramID(ctx, telegramID)
	if err == nil && existing.ID != target.ID {
		return nil, instructor.ErrTelegramIDInUse
	}
	if err != nil && !errors.Is(err, instructor.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing Telegram link: %w", err)
	}

	if err := s.instructorRepo.SetTelegramID(ctx, target.ID, telegramID); err != nil {
		if errors.Is(err, instructor.ErrTelegramIDInUse) {
			return nil, instructor.ErrTelegramIDInUse
		}
		return nil, fmt.Errorf("failed to link instructor: %w", err)
	}
	target.TelegramID.Int64 = telegramID
	target.TelegramID.Valid = true
	return target, nil
}

// UnlinkInstructor detaches whichever instructor is linked to telegramID.
func (s *AdminService) UnlinkInstructor(ctx context.Context, performingAdminID int64, telegramID int64) (*instructor.Instructor, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}

	target, err := s.instructorRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, instructor.ErrNotFound) {
			return nil, ErrInstructorNotLinked
		}
		return nil, fmt.Errorf("failed to get instructor by Telegram ID for unlinking: %w", err)
	}

	if err := s.instructorRepo.SetTelegramID(ctx, target.ID, 0); err != nil {
		return nil, fmt.Errorf("failed to unlink instructor: %w", err)
	}
	target.TelegramID.Int64 = 0
	target.TelegramID.Valid = false
	return target, nil
}

func (s *AdminService) ListInstructors(ctx context.Context, performingAdminID int64) ([]*instructor.Instructor, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	list, err := s.instructorRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active instructors: %w", err)
	}
	return list, nil
}
