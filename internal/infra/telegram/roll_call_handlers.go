package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"unisync/internal/app"
	"unisync/internal/domain/attendance"
	domainTelegram "unisync/internal/domain/telegram"
)

// RegisterRollCallHandlers wires the inline buttons attached to session-opened messages.
func RegisterRollCallHandlers(ctx context.Context, b *telebot.Bot, notificationService app.NotificationService, baseLogger *logrus.Entry) {
	b.Handle(&telebot.Btn{Unique: domainTelegram.ButtonRollPresent}, rollCallHandler(ctx, notificationService, attendance.StatusPresent, baseLogger))
	b.Handle(&telebot.Btn{Unique: domainTelegram.ButtonRollAbsent}, rollCallHandler(ctx, notificationService, attendance.StatusAbsent, baseLogger))
}

func rollCallHandler(ctx context.Context, notificationService app.NotificationService, status attendance.Status, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		data := c.Callback().Data
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "roll_call",
			"sender_id": c.Sender().ID,
			"status":    status,
		})

		sessionID, err := uuid.Parse(data)
		if err != nil {
			logCtx.WithField("data", data).Warn("Invalid roll call payload")
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown session."})
		}
		logCtx = logCtx.WithField("session_id", sessionID)

		sub, err := notificationService.ProcessRollCall(ctx, c.Sender().ID, sessionID, status)
		if err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: rollCallErrorText(logCtx, err)})
		}

		logCtx.WithField("inserted", len(sub.Inserted)).Info("Roll call recorded")
		text := fmt.Sprintf("Marked %d students %s.", len(sub.Inserted), status)
		if len(sub.Conflicts) > 0 {
			text += fmt.Sprintf(" %d were already marked by someone else.", len(sub.Conflicts))
		}
		return c.Respond(&telebot.CallbackResponse{Text: text})
	}
}

func rollCallErrorText(logCtx *logrus.Entry, err error) string {
	var failed *app.SubmitFailedError
	switch {
	case errors.Is(err, app.ErrNothingToSubmit):
		logCtx.Info("Roll call had nothing to submit")
		return "Every student is already marked."
	case errors.Is(err, app.ErrInstructorNotLinked), errors.Is(err, app.ErrInstructorInactive):
		logCtx.WithError(err).Warn("Roll call from an unlinked or inactive instructor")
		return "Your account is not linked to an active instructor."
	case errors.Is(err, app.ErrSessionNotOwned):
		logCtx.Warn("Roll call for a session the sender does not own")
		return "This session is not yours."
	case errors.Is(err, app.ErrStoreUnavailable):
		logCtx.WithError(err).Warn("Record store unavailable during roll call")
		return "Attendance service is temporarily unavailable. Please try again."
	case errors.As(err, &failed):
		logCtx.WithError(err).WithField("students", len(failed.StudentIDs)).Error("Roll call submission failed")
		return fmt.Sprintf("Could not record attendance for %d students. Nothing was saved.", len(failed.StudentIDs))
	default:
		logCtx.WithError(err).Error("Roll call failed")
		return "Something went wrong."
	}
}
