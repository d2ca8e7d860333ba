package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
)

// RollCallEntry is one roster line of the marking view. Status is empty
// while the student is unmarked.
type RollCallEntry struct {
	StudentID uuid.UUID         `json:"student_id"`
	Name      string            `json:"name"`
	Status    attendance.Status `json:"status,omitempty"`
	Marked    bool              `json:"marked"`
}

// RollCall is the instructor's marking view of the current session.
type RollCall struct {
	Resolution *Resolution                     `json:"-"`
	Students   []RollCallEntry                 `json:"students"`
	CanSubmit  bool                            `json:"can_submit"`
	Roster     []roster.Entry                  `json:"-"`
	Marked     map[uuid.UUID]attendance.Status `json:"-"`
}

// SessionSummary is a past session with its mark counts.
type SessionSummary struct {
	Session *session.CourseSession `json:"session"`
	Tally   attendance.Tally       `json:"tally"`
}

// StudentRow is one conducted session from a student's point of view.
type StudentRow struct {
	SessionID uuid.UUID         `json:"session_id"`
	Date      time.Time         `json:"date"`
	StartTime session.TimeOfDay `json:"start_time"`
	EndTime   session.TimeOfDay `json:"end_time"`
	Room      string            `json:"room_number"`
	Status    attendance.Status `json:"status,omitempty"`
}

// StudentSummary aggregates a student's attendance in one course.
type StudentSummary struct {
	StudentID  uuid.UUID    `json:"student_id"`
	CourseID   uuid.UUID    `json:"course_id"`
	Conducted  int          `json:"classes_conducted"`
	Attended   int          `json:"classes_attended"`
	Percentage float64      `json:"attendance_percentage"`
	Rows       []StudentRow `json:"sessions"`
}

// ReportService builds the read-side views around the resolver and recorder.
type ReportService struct {
	resolver *SessionResolver
	sessions session.Repository
	records  attendance.Repository
	roster   roster.Provider
	cache    MarkedCache
	logger   *logrus.Entry
}

func NewReportService(
	resolver *SessionResolver,
	sr session.Repository,
	ar attendance.Repository,
	rp roster.Provider,
	cache MarkedCache,
	logger *logrus.Entry,
) *ReportService {
	if cache == nil {
		cache = NopMarkedCache{}
	}
	return &ReportService{
		resolver: resolver,
		sessions: sr,
		records:  ar,
		roster:   rp,
		cache:    cache,
		logger:   logger,
	}
}

// RollCall resolves the current session and pairs the roster with existing marks.
// With no active session the result carries an empty student list.
func (s *ReportService) RollCall(ctx context.Context, courseID, instructorID uuid.UUID, now time.Time) (*RollCall, error) {
	res, err := s.resolver.Resolve(ctx, courseID, instructorID, now)
	if err != nil {
		return nil, err
	}
	rc := &RollCall{Resolution: res, Students: []RollCallEntry{}}
	if !res.Active() {
		return rc, nil
	}

	students, err := s.roster.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	marked, err := s.Marked(ctx, res.Session.ID)
	if err != nil {
		return nil, err
	}

	rc.Roster = students
	rc.Marked = marked
	for _, st := range students {
		status, ok := marked[st.StudentID]
		rc.Students = append(rc.Students, RollCallEntry{
			StudentID: st.StudentID,
			Name:      st.Name,
			Status:    status,
			Marked:    ok,
		})
		if !ok {
			rc.CanSubmit = true
		}
	}
	return rc, nil
}

// Marked returns the "already marked" mapping of a session, preferring the
// cache and priming it from the record store on a miss.
func (s *ReportService) Marked(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]attendance.Status, error) {
	logCtx := s.logger.WithField("session_id", sessionID)

	marked, ok, err := s.cache.Load(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Warn("Marked attendance cache read failed, using record store")
	} else if ok {
		return marked, nil
	}

	records, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for session: %w", err)
	}
	marked = attendance.Marked(records)
	if len(marked) > 0 {
		if err := s.cache.Extend(ctx, sessionID, marked); err != nil {
			logCtx.WithError(err).Warn("Failed to prime marked attendance cache")
		}
	}
	return marked, nil
}

// WeeklySessions lists the sessions held since Sunday, excluding today.
func (s *ReportService) WeeklySessions(ctx context.Context, courseID, instructorID uuid.UUID, now time.Time) ([]SessionSummary, error) {
	m := session.MomentOf(now, s.resolver.Location())
	from := session.WeekStart(m.Date)

	sessions, err := s.sessions.ListBetween(ctx, courseID, instructorID, from, m.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for the week: %w", err)
	}
	if len(sessions) == 0 {
		return []SessionSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	for _, cs := range sessions {
		ids = append(ids, cs.ID)
	}
	tallies, err := s.records.TallyBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance for the week: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, cs := range sessions {
		summaries = append(summaries, SessionSummary{Session: cs, Tally: tallies[cs.ID]})
	}
	return summaries, nil
}

// StudentSummary counts conducted sessions of the course up to today against
// the sessions the student was marked present for.
func (s *ReportService) StudentSummary(ctx context.Context, courseID, studentID uuid.UUID, now time.Time) (*StudentSummary, error) {
	m := session.MomentOf(now, s.resolver.Location())

	sessions, err := s.sessions.ListByCourse(ctx, courseID, m.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to list course sessions: %w", err)
	}
	records, err := s.records.ListByStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student attendance: %w", err)
	}

	bySession := make(map[uuid.UUID]attendance.Status, len(records))
	for _, rec := range records {
		bySession[rec.SessionID] = rec.Status
	}

	sum := &StudentSummary{
		StudentID: studentID,
		CourseID:  courseID,
		Conducted: len(sessions),
		Rows:      make([]StudentRow, 0, len(sessions)),
	}
	for _, cs := range sessions {
		status := bySession[cs.ID]
		if status == attendance.StatusPresent {
			sum.Attended++
		}
		sum.Rows = append(sum.Rows, StudentRow{
			SessionID: cs.ID,
			Date:      cs.Date,
			StartTime: cs.StartTime,
			EndTime:   cs.EndTime,
			Room:      cs.Room,
			Status:    status,
		})
	}
	if sum.Conducted > 0 {
		pct := float64(sum.Attended) * 100 / float64(sum.Conducted)
		sum.Percentage = math.Round(pct*100) / 100
	}
	return sum, nil
}
