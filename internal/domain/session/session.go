package session

import (
	"time"

	"github.com/google/uuid"
)

// CourseSession is one dated occurrence of a class meeting.
// Corresponds to the 'class_sessions' table.
type CourseSession struct {
	ID           uuid.UUID     `json:"session_id"`
	CourseID     uuid.UUID     `json:"course_id"`
	InstructorID uuid.UUID     `json:"instructor_id"`
	Date         time.Time     `json:"session_date"`
	StartTime    TimeOfDay     `json:"start_time"`
	EndTime      TimeOfDay     `json:"end_time"`
	Room         string        `json:"room_number"`
	TemplateID   uuid.NullUUID `json:"template_id"` // set when materialized from a recurring template
	CreatedAt    time.Time     `json:"created_at"`
}

func (s *CourseSession) Window() Window {
	return Window{Start: s.StartTime, End: s.EndTime}
}

// Contains reports whether the session is running at the given time of day.
func (s *CourseSession) Contains(at TimeOfDay) bool {
	return s.Window().Contains(at)
}

// Materialized reports whether the session was created from a recurring template.
func (s *CourseSession) Materialized() bool {
	return s.TemplateID.Valid
}

// RecurringTemplate is a weekly slot from which sessions are materialized on demand.
// Corresponds to the 'recurring_sessions' table.
type RecurringTemplate struct {
	ID           uuid.UUID
	CourseID     uuid.UUID
	InstructorID uuid.UUID
	DayOfWeek    time.Weekday // 0 = Sunday
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	Room         string
}

func (t *RecurringTemplate) Window() Window {
	return Window{Start: t.StartTime, End: t.EndTime}
}

func (t *RecurringTemplate) Contains(at TimeOfDay) bool {
	return t.Window().Contains(at)
}

// Materialize builds the concrete session this template describes on date.
func (t *RecurringTemplate) Materialize(date time.Time) *CourseSession {
	return &CourseSession{
		ID:           uuid.New(),
		CourseID:     t.CourseID,
		InstructorID: t.InstructorID,
		Date:         DateOf(date),
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		Room:         t.Room,
		TemplateID:   uuid.NullUUID{UUID: t.ID, Valid: true},
	}
}
