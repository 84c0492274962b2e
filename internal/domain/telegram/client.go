package telegram

import "gopkg.in/telebot.v3"

// Client sends operator messages (job failure alerts, command replies) through the bot.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
