package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a student's mark for one session. Always stored lower-case.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// DefaultStatus applies to students the instructor did not mark explicitly.
const DefaultStatus = StatusAbsent

// ParseStatus normalizes case, so "Present" and "present" are the same mark.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid attendance status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Record is one student's attendance for one session.
// Corresponds to the 'attendances' table; unique per (session_id, student_id).
type Record struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	CourseID  uuid.UUID `json:"course_id"`
	StudentID uuid.UUID `json:"student_id"`
	Status    Status    `json:"status"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally counts the marks of a session.
type Tally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

func (t *Tally) Add(s Status) {
	switch s {
	case StatusPresent:
		t.Present++
	case StatusAbsent:
		t.Absent++
	}
}

// Marked indexes records by student.
func Marked(records []*Record) map[uuid.UUID]Status {
	marked := make(map[uuid.UUID]Status, len(records))
	for _, r := range records {
		marked[r.StudentID] = r.Status
	}
	return marked
}
