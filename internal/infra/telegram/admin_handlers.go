package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"unisync/internal/app"
	"unisync/internal/domain/instructor"
)

const notAuthorizedText = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers handlers for admin commands.
// It requires the bot instance, admin service, and the configured admin Telegram ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/link_instructor", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/link_instructor",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		args := c.Args()
		// Expected format: /link_instructor <InstructorID> <TelegramID>
		if len(args) != 2 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Invalid format. Use: /link_instructor <InstructorID> <TelegramID>")
		}
		instructorID, err := uuid.Parse(args[0])
		if err != nil {
			return c.Send("Error: instructor ID must be a UUID.")
		}
		telegramID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return c.Send("Error: Telegram ID must be a number.")
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{
			"instructor_id": instructorID,
			"telegram_id":   telegramID,
		})

		linked, err := adminService.LinkInstructor(ctx, c.Sender().ID, instructorID, telegramID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			case errors.Is(err, instructor.ErrNotFound):
				logWithError.Warn("Instructor to link not found")
				return c.Send(fmt.Sprintf("Instructor %s not found.", instructorID))
			case errors.Is(err, app.ErrInstructorInactive):
				logWithError.Warn("Instructor is inactive")
				return c.Send(fmt.Sprintf("Instructor %s is inactive.", instructorID))
			case errors.Is(err, instructor.ErrTelegramIDInUse):
				logWithError.Warn("Telegram ID already linked")
				return c.Send(fmt.Sprintf("Telegram ID %d is already linked to another instructor.", telegramID))
			default:
				logWithError.Error("Failed to link instructor")
				return c.Send(fmt.Sprintf("Failed to link instructor: %s", err.Error()))
			}
		}

		handlerLogger.Info("Instructor linked successfully")
		return c.Send(fmt.Sprintf("Instructor %s is now linked to Telegram ID %d.", linked.FullName(), telegramID))
	})

	b.Handle("/unlink_instructor", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/unlink_instructor",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		args := c.Args()
		// Expected format: /unlink_instructor <TelegramID>
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /unlink_instructor <TelegramID>")
		}
		telegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			handlerLogger.WithField("arg", args[0]).Warn("Invalid Telegram ID format")
			return c.Send("Error: Telegram ID must be a number.")
		}
		handlerLogger = handlerLogger.WithField("telegram_id", telegramID)

		unlinked, err := adminService.UnlinkInstructor(ctx, c.Sender().ID, telegramID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			case errors.Is(err, app.ErrInstructorNotLinked):
				logWithError.Warn("No instructor linked to Telegram ID")
				return c.Send(fmt.Sprintf("No instructor is linked to Telegram ID %d.", telegramID))
			default:
				logWithError.Error("Failed to unlink instructor")
				return c.Send(fmt.Sprintf("Failed to unlink instructor: %s", err.Error()))
			}
		}

		handlerLogger.WithField("instructor_id", unlinked.ID).Info("Instructor unlinked successfully")
		return c.Send(fmt.Sprintf("Instructor %s is no longer linked to Telegram.", unlinked.FullName()))
	})

	b.Handle("/list_instructors", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/list_instructors",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		list, err := adminService.ListInstructors(ctx, c.Sender().ID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			}
			logWithError.Error("Failed to get list of instructors")
			return c.Send(fmt.Sprintf("Failed to list instructors: %s", err.Error()))
		}
		if len(list) == 0 {
			handlerLogger.Info("No active instructors found")
			return c.Send("No active instructors found.")
		}

		handlerLogger.WithField("instructors_count", len(list)).Info("Successfully retrieved instructor list")
		return c.Send(formatInstructorList(list))
	})
}

func formatInstructorList(list []*instructor.Instructor) string {
	var response strings.Builder
	response.WriteString("--- Active instructors ---\n")
	for _, i := range list {
		link := "not linked"
		if i.TelegramID.Valid {
			link = strconv.FormatInt(i.TelegramID.Int64, 10)
		}
		response.WriteString(fmt.Sprintf("%s, ID: %s, Telegram: %s\n", i.FullName(), i.ID, link))
	}
	return response.String()
}
