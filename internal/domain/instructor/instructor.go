package instructor

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Instructor is a member of staff who owns class sessions.
type Instructor struct {
	ID         uuid.UUID
	FirstName  string
	LastName   sql.NullString
	TelegramID sql.NullInt64 // set once the instructor is linked to the bot
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (i *Instructor) FullName() string {
	if i.LastName.Valid && i.LastName.String != "" {
		return i.FirstName + " " + i.LastName.String
	}
	return i.FirstName
}
