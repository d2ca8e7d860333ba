// internal/app/notification_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/instructor"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
	domainTelegram "unisync/internal/domain/telegram"
)

// NotificationService connects instructors' Telegram chats to the attendance workflow.
type NotificationService interface {
	// NotifySessionOpened tells the owning instructor that a session is running
	// and offers one-tap roll call buttons.
	NotifySessionOpened(ctx context.Context, sess *session.CourseSession) error
	// CurrentSession resolves the session a linked instructor is teaching now.
	CurrentSession(ctx context.Context, telegramID int64, courseID uuid.UUID, now time.Time) (*Resolution, error)
	// ProcessRollCall marks every still-unmarked student of the session with status.
	ProcessRollCall(ctx context.Context, telegramID int64, sessionID uuid.UUID, status attendance.Status) (*Submission, error)
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	instructorRepo instructor.Repository
	sessionRepo    session.Repository
	rosterProvider roster.Provider
	resolver       *SessionResolver
	recorder       *AttendanceRecorder
	telegramClient domainTelegram.Client
	logger         *logrus.Entry
}

func NewNotificationServiceImpl(
	ir instructor.Repository,
	sr session.Repository,
	rp roster.Provider,
	resolver *SessionResolver,
	recorder *AttendanceRecorder,
	tc domainTelegram.Client,
	logger *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		instructorRepo: ir,
		sessionRepo:    sr,
		rosterProvider: rp,
		resolver:       resolver,
		recorder:       recorder,
		telegramClient: tc,
		logger:         logger,
	}
}

func (s *NotificationServiceImpl) NotifySessionOpened(ctx context.Context, sess *session.CourseSession) error {
	logCtx := s.logger.WithFields(logrus.Fields{
		"session_id":    sess.ID,
		"instructor_id": sess.InstructorID,
	})

	inst, err := s.instructorRepo.GetByID(ctx, sess.InstructorID)
	if err != nil {
		if errors.Is(err, instructor.ErrNotFound) {
			logCtx.Warn("Instructor of opened session not found in directory, skipping notification")
			return nil
		}
		return fmt.Errorf("failed to get instructor %s: %w", sess.InstructorID, err)
	}
	if !inst.IsActive || !inst.TelegramID.Valid {
		logCtx.Debug("Instructor is inactive or not linked to Telegram, skipping notification")
		return nil
	}

	text := fmt.Sprintf("Hi, %s! %s", inst.FirstName, DescribeSession(sess))
	err = s.telegramClient.SendMessage(inst.TelegramID.Int64, text, &telebot.SendOptions{ReplyMarkup: RollCallMarkup(sess)})
	if err != nil {
		logCtx.WithError(err).WithField("telegram_id", inst.TelegramID.Int64).Error("Failed to send session opened notification")
		return fmt.Errorf("failed to notify instructor: %w", err)
	}
	logCtx.WithField("telegram_id", inst.TelegramID.Int64).Info("Session opened notification sent")
	return nil
}

func (s *NotificationServiceImpl) CurrentSession(ctx context.Context, telegramID int64, courseID uuid.UUID, now time.Time) (*Resolution, error) {
	inst, err := s.linkedInstructor(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, courseID, inst.ID, now)
}

func (s *NotificationServiceImpl) ProcessRollCall(ctx context.Context, telegramID int64, sessionID uuid.UUID, status attendance.Status) (*Submission, error) {
	logCtx := s.logger.WithFields(logrus.Fields{
		"telegram_id": telegramID,
		"session_id":  sessionID,
		"status":      status,
	})
	logCtx.Info("Processing roll call response")

	inst, err := s.linkedInstructor(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotOwned
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	if sess.InstructorID != inst.ID {
		logCtx.WithField("instructor_id", inst.ID).Warn("Roll call for a session owned by another instructor")
		return nil, ErrSessionNotOwned
	}

	students, err := s.rosterProvider.ListByCourse(ctx, sess.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	marks := make(map[uuid.UUID]attendance.Status, len(students))
	for _, st := range students {
		marks[st.StudentID] = status
	}
	return s.recorder.Submit(ctx, sess, students, marks)
}

func (s *NotificationServiceImpl) linkedInstructor(ctx context.Context, telegramID int64) (*instructor.Instructor, error) {
	inst, err := s.instructorRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, instructor.ErrNotFound) {
			return nil, ErrInstructorNotLinked
		}
		return nil, fmt.Errorf("failed to get instructor by Telegram ID: %w", err)
	}
	if !inst.IsActive {
		return nil, ErrInstructorInactive
	}
	return inst, nil
}

// DescribeSession renders a one-line summary of a running session.
func DescribeSession(sess *session.CourseSession) string {
	room := sess.Room
	if room == "" {
		room = "n/a"
	}
	return fmt.Sprintf("Class session on %s, %s-%s, room %s is open for attendance.",
		sess.Date.Format("Mon 02 Jan"),
		sess.StartTime.String()[:5],
		sess.EndTime.String()[:5],
		room)
}

// RollCallMarkup builds the inline buttons that mark all unmarked students at once.
func RollCallMarkup(sess *session.CourseSession) *telebot.ReplyMarkup {
	replyMarkup := &telebot.ReplyMarkup{}
	btnPresent := replyMarkup.Data("All present", domainTelegram.ButtonRollPresent, sess.ID.String())
	btnAbsent := replyMarkup.Data("All absent", domainTelegram.ButtonRollAbsent, sess.ID.String())
	replyMarkup.Inline(replyMarkup.Row(btnPresent, btnAbsent))
	return replyMarkup
}
