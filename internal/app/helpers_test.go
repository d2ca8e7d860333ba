package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
	"unisync/internal/infra/logger"
	"unisync/internal/infra/memstore"
)

// 2024-01-01 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	db           *memstore.DB
	sessions     session.Repository
	templates    session.TemplateRepository
	records      attendance.Repository
	roster       roster.Provider
	metrics      *recordingMetrics
	cache        *memoryCache
	resolver     *SessionResolver
	recorder     *AttendanceRecorder
	reports      *ReportService
	courseID     uuid.UUID
	instructorID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	f := &fixture{
		db:           db,
		sessions:     memstore.NewSessionRepository(db),
		templates:    memstore.NewTemplateRepository(db),
		records:      memstore.NewAttendanceRepository(db),
		roster:       memstore.NewRosterProvider(db),
		metrics:      &recordingMetrics{},
		cache:        newMemoryCache(),
		courseID:     uuid.New(),
		instructorID: uuid.New(),
	}
	f.resolver = NewSessionResolver(f.sessions, f.templates, time.UTC, f.metrics, logger.Discard())
	f.recorder = NewAttendanceRecorder(f.records, f.cache, f.metrics, logger.Discard())
	f.reports = NewReportService(f.resolver, f.sessions, f.records, f.roster, f.cache, logger.Discard())
	return f
}

func (f *fixture) addTemplate(t *testing.T, day time.Weekday, start, end string) *session.RecurringTemplate {
	t.Helper()
	s, err := session.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := session.ParseTimeOfDay(end)
	require.NoError(t, err)
	return f.db.AddTemplate(session.RecurringTemplate{
		CourseID:     f.courseID,
		InstructorID: f.instructorID,
		DayOfWeek:    day,
		StartTime:    s,
		EndTime:      e,
		Room:         "A-101",
	})
}

func (f *fixture) addSession(t *testing.T, date time.Time, start, end string) *session.CourseSession {
	t.Helper()
	s, err := session.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := session.ParseTimeOfDay(end)
	require.NoError(t, err)
	cs, err := f.db.AddSession(session.CourseSession{
		CourseID:     f.courseID,
		InstructorID: f.instructorID,
		Date:         date,
		StartTime:    s,
		EndTime:      e,
		Room:         "A-101",
	})
	require.NoError(t, err)
	return cs
}

func (f *fixture) enroll(names ...string) []roster.Entry {
	entries := make([]roster.Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, roster.Entry{StudentID: uuid.New(), Name: n})
	}
	f.db.Enroll(f.courseID, entries...)
	return entries
}

func (f *fixture) mark(t *testing.T, sess *session.CourseSession, studentID uuid.UUID, status attendance.Status) {
	t.Helper()
	_, err := f.records.BulkCreate(context.Background(), []*attendance.Record{{
		SessionID: sess.ID,
		CourseID:  sess.CourseID,
		StudentID: studentID,
		Status:    status,
		Date:      sess.Date,
	}})
	require.NoError(t, err)
}

type recordingMetrics struct {
	mu          sync.Mutex
	resolutions []ResolutionState
	outcomes    []string
}

func (m *recordingMetrics) ObserveResolution(state ResolutionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = append(m.resolutions, state)
}

func (m *recordingMetrics) ObserveSubmission(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

type memoryCache struct {
	mu        sync.Mutex
	entries   map[uuid.UUID]map[uuid.UUID]attendance.Status
	loads     int
	err       error
	extendErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[uuid.UUID]map[uuid.UUID]attendance.Status)}
}

func (c *memoryCache) Load(_ context.Context, sessionID uuid.UUID) (map[uuid.UUID]attendance.Status, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	if c.err != nil {
		return nil, false, c.err
	}
	m, ok := c.entries[sessionID]
	if !ok {
		return nil, false, nil
	}
	cp := make(map[uuid.UUID]attendance.Status, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp, true, nil
}

func (c *memoryCache) Extend(_ context.Context, sessionID uuid.UUID, marked map[uuid.UUID]attendance.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.extendErr != nil {
		return c.extendErr
	}
	m, ok := c.entries[sessionID]
	if !ok {
		m = make(map[uuid.UUID]attendance.Status)
		c.entries[sessionID] = m
	}
	for k, v := range marked {
		m[k] = v
	}
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.entries, sessionID)
	return nil
}
