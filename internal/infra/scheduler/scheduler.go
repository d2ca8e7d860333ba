package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"unisync/internal/app"
	"unisync/internal/domain/session"
)

// SweepObserver counts scheduler passes.
type SweepObserver interface {
	ObserveSweep(result string)
}

// SessionScheduler periodically opens the sessions the weekly timetable says
// are running, through the same resolver the UI uses, and tells instructors.
type SessionScheduler struct {
	cronEngine *cron.Cron
	templates  session.TemplateRepository
	resolver   *app.SessionResolver
	notifier   app.NotificationService // nil when the bot is disabled
	observer   SweepObserver
	logger     *logrus.Entry
	cronSpec   string
	now        func() time.Time
}

func NewSessionScheduler(
	templates session.TemplateRepository,
	resolver *app.SessionResolver,
	notifier app.NotificationService,
	observer SweepObserver,
	logger *logrus.Entry,
	cronSpec string, // e.g., "* * * * *" (every minute)
) *SessionScheduler {
	return &SessionScheduler{
		cronEngine: cron.New(cron.WithLocation(resolver.Location())),
		templates:  templates,
		resolver:   resolver,
		notifier:   notifier,
		observer:   observer,
		logger:     logger,
		cronSpec:   cronSpec,
		now:        time.Now,
	}
}

func (s *SessionScheduler) Start() error {
	s.logger.Info("Starting session scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second) // Context for the job
		defer cancel()
		opened, err := s.Sweep(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Session sweep finished with errors")
			s.observe("error")
			return
		}
		if opened > 0 {
			s.logger.WithField("opened", opened).Info("Session sweep opened sessions")
		}
		s.observe("ok")
	})
	if err != nil {
		return fmt.Errorf("could not add session sweep cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Session scheduler started")
	return nil
}

// Sweep resolves every recurring session running right now and returns how
// many it materialized. A failing template does not stop the others.
func (s *SessionScheduler) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	m := session.MomentOf(now, s.resolver.Location())
	templates, err := s.templates.ListForDay(ctx, m.Weekday)
	if err != nil {
		return 0, fmt.Errorf("failed to list recurring sessions for %s: %w", m.Weekday, err)
	}

	var (
		opened int
		errs   []error
	)
	for _, t := range templates {
		if !t.Contains(m.Time) {
			continue
		}
		logCtx := s.logger.WithFields(logrus.Fields{
			"template_id": t.ID,
			"course_id":   t.CourseID,
		})

		res, err := s.resolver.Resolve(ctx, t.CourseID, t.InstructorID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("template %s: %w", t.ID, err))
			continue
		}
		if res.State != app.StateActiveMaterialized {
			continue
		}
		opened++
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.NotifySessionOpened(ctx, res.Session); err != nil {
			logCtx.WithError(err).Warn("Failed to notify instructor about opened session")
		}
	}
	return opened, errors.Join(errs...)
}

func (s *SessionScheduler) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveSweep(result)
	}
}

func (s *SessionScheduler) Stop() {
	s.logger.Info("Stopping session scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Session scheduler gracefully stopped.")
}
