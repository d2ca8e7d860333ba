package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/app"
	"unisync/internal/domain/attendance"
	"unisync/internal/domain/record"
	"unisync/internal/domain/session"
	"unisync/internal/infra/logger"
	"unisync/internal/infra/memstore"
)

type fakeNotifier struct {
	mu     sync.Mutex
	opened []*session.CourseSession
	err    error
}

func (n *fakeNotifier) NotifySessionOpened(_ context.Context, sess *session.CourseSession) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened = append(n.opened, sess)
	return n.err
}

func (n *fakeNotifier) CurrentSession(context.Context, int64, uuid.UUID, time.Time) (*app.Resolution, error) {
	return nil, errors.New("not used")
}

func (n *fakeNotifier) ProcessRollCall(context.Context, int64, uuid.UUID, attendance.Status) (*app.Submission, error) {
	return nil, errors.New("not used")
}

type countingObserver struct {
	results []string
}

func (o *countingObserver) ObserveSweep(result string) {
	o.results = append(o.results, result)
}

func newTestScheduler(t *testing.T, notifier app.NotificationService) (*SessionScheduler, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	templates := memstore.NewTemplateRepository(db)
	resolver := app.NewSessionResolver(memstore.NewSessionRepository(db), templates, time.UTC, nil, logger.Discard())
	s := NewSessionScheduler(templates, resolver, notifier, &countingObserver{}, logger.Discard(), "* * * * *")
	// Monday 2024-01-01, 09:30.
	s.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }
	return s, db
}

func addTemplate(db *memstore.DB, day time.Weekday, startHour, endHour int) *session.RecurringTemplate {
	return db.AddTemplate(session.RecurringTemplate{
		CourseID:     uuid.New(),
		InstructorID: uuid.New(),
		DayOfWeek:    day,
		StartTime:    session.NewTimeOfDay(startHour, 0, 0),
		EndTime:      session.NewTimeOfDay(endHour, 0, 0),
	})
}

func TestSweepOpensRunningSessionsOnce(t *testing.T) {
	notifier := &fakeNotifier{}
	s, db := newTestScheduler(t, notifier)
	running := addTemplate(db, time.Monday, 9, 10)
	addTemplate(db, time.Monday, 14, 15)
	addTemplate(db, time.Tuesday, 9, 10)
	ctx := context.Background()

	opened, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, opened)
	require.Len(t, notifier.opened, 1)
	assert.Equal(t, running.CourseID, notifier.opened[0].CourseID)

	opened, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, opened)
	assert.Len(t, notifier.opened, 1)
	assert.Equal(t, 1, db.SessionCount())
}

func TestSweepWithoutNotifier(t *testing.T) {
	s, db := newTestScheduler(t, nil)
	addTemplate(db, time.Monday, 9, 10)
	addTemplate(db, time.Monday, 8, 12)

	opened, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, opened)
}

func TestSweepIgnoresNotificationFailures(t *testing.T) {
	s, db := newTestScheduler(t, &fakeNotifier{err: errors.New("chat not found")})
	addTemplate(db, time.Monday, 9, 10)

	opened, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, opened)
}

func TestSweepReportsResolverFailures(t *testing.T) {
	s, db := newTestScheduler(t, nil)
	addTemplate(db, time.Monday, 9, 10)
	addTemplate(db, time.Monday, 9, 11)
	db.Fail(memstore.OpFindActive, fmt.Errorf("reset: %w", record.ErrUnavailable))

	opened, err := s.Sweep(context.Background())
	assert.Zero(t, opened)
	assert.ErrorIs(t, err, record.ErrUnavailable)
}

func TestSweepFailsWhenTimetableIsUnreadable(t *testing.T) {
	s, db := newTestScheduler(t, nil)
	db.Fail(memstore.OpFindTemplate, errors.New("boom"))

	_, err := s.Sweep(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	s.cronSpec = "every minute"

	assert.Error(t, s.Start())
}
