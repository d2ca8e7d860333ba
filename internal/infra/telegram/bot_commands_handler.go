// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"unisync/internal/app"
	"unisync/internal/domain/instructor"
	"unisync/internal/infra/config"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig, // For AdminTelegramID
	instructorRepo instructor.Repository,
	notificationService app.NotificationService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hi, admin %s! Use /help to see the available commands.", c.Sender().FirstName))
		}

		inst, err := instructorRepo.GetByTelegramID(ctx, senderID)
		if err == nil {
			if inst.IsActive {
				logCtx.WithField("instructor_id", inst.ID).Info("User identified as Active Instructor")
				return c.Send(fmt.Sprintf("Hi, %s! I will tell you when your class sessions open so you can take the roll from here.", inst.FirstName))
			}
			logCtx.WithField("instructor_id", inst.ID).Info("User identified as Inactive Instructor")
			return c.Send("Your instructor account is inactive. Please contact the administrator.")
		} else if !errors.Is(err, instructor.ErrNotFound) {
			logCtx.WithError(err).Error("Error checking instructor status for /start command")
			return c.Send("Could not check your status. Please try again later.")
		}

		logCtx.Info("User is unknown")
		return c.Send(fmt.Sprintf("Hi! This bot is for instructors. Ask the administrator to link your account, quoting your Telegram ID %d.", senderID))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin, sending admin help.")
			var helpText strings.Builder
			helpText.WriteString("Admin commands:\n\n")
			helpText.WriteString("`/link_instructor <InstructorID> <TelegramID>`\n - Link an instructor to a Telegram account.\n\n")
			helpText.WriteString("`/unlink_instructor <TelegramID>`\n - Remove the link for a Telegram account.\n\n")
			helpText.WriteString("`/list_instructors`\n - Show active instructors and their links.\n\n")
			helpText.WriteString("`/help`\n - Show this message.")
			return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		inst, err := instructorRepo.GetByTelegramID(ctx, senderID)
		if err == nil && inst.IsActive {
			logCtx.WithField("instructor_id", inst.ID).Info("User identified as Active Instructor, sending instructor help.")
			return c.Send("When one of your class sessions opens I send you a message with \"All present\" and \"All absent\" buttons. They mark every student who is not marked yet.\n\n`/session <CourseID>` - Show the session running now for a course.\n`/help` - Show this message.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}
		if err != nil && !errors.Is(err, instructor.ErrNotFound) {
			logCtx.WithError(err).Error("Error checking instructor status for /help command")
			return c.Send("Could not check your status. Please try again later.")
		}

		logCtx.Info("User is unknown or inactive, sending restricted help.")
		return c.Send("No commands are available to you. If you are an instructor, ask the administrator to link your account.")
	})

	b.Handle("/session", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{
			"command":   "/session",
			"sender_id": senderID,
		})

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /session <CourseID>")
		}
		courseID, err := uuid.Parse(args[0])
		if err != nil {
			return c.Send("Course ID must be a UUID.")
		}
		logCtx = logCtx.WithField("course_id", courseID)

		res, err := notificationService.CurrentSession(ctx, senderID, courseID, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, app.ErrInstructorNotLinked), errors.Is(err, app.ErrInstructorInactive):
				logCtx.WithError(err).Warn("Session lookup by unlinked or inactive instructor")
				return c.Send("Your account is not linked to an active instructor.")
			case errors.Is(err, app.ErrStoreUnavailable):
				logCtx.WithError(err).Warn("Record store unavailable during session lookup")
				return c.Send("Attendance service is temporarily unavailable. Please try again.")
			default:
				logCtx.WithError(err).Error("Session lookup failed")
				return c.Send("Something went wrong.")
			}
		}

		if !res.Active() {
			return c.Send("No class session is running for this course right now.")
		}
		return c.Send(app.DescribeSession(res.Session), &telebot.SendOptions{ReplyMarkup: app.RollCallMarkup(res.Session)})
	})
}
