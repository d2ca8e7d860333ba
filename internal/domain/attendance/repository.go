package attendance

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines operations for AttendanceRecord rows.
type Repository interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Record, error)
	// BulkCreate inserts all records atomically. Records whose (session, student)
	// pair already exists are skipped, not failed; only inserted rows are returned.
	// Any other failure leaves the store untouched.
	BulkCreate(ctx context.Context, records []*Record) ([]*Record, error)
	TallyBySessions(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]Tally, error)
	ListByStudent(ctx context.Context, courseID, studentID uuid.UUID) ([]*Record, error)
}
