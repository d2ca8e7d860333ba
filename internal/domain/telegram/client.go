package telegram

import "gopkg.in/telebot.v3"

// Client sends chat messages to linked instructors.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}

// Unique names of the roll call buttons attached to session-opened messages.
// The button payload is the session ID.
const (
	ButtonRollPresent = "roll_present"
	ButtonRollAbsent  = "roll_absent"
)
