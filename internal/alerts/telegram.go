// Package alerts escalates crisis-flagged messages to the counsellor duty
// channel over Telegram. Escalation is strictly best effort: a failed alert
// never blocks or fails the message it concerns.
package alerts

import (
	"fmt"
	"log"
	"strings"

	"campusmind/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier posts crisis alerts to a fixed chat.
type TelegramNotifier struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
}

// NewTelegramNotifier authenticates the bot and returns a notifier bound to
// the duty channel.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("Crisis alert bot authorized on account %s", bot.Self.UserName)

	return &TelegramNotifier{BotAPI: bot, ChatID: chatID}, nil
}

// NotifyCrisis posts a crisis alert. The alert carries the session and the
// detected keywords, not the user's identity: the anon id is enough for a
// counsellor to reach the session from the dashboard.
func (n *TelegramNotifier) NotifyCrisis(rec *models.MessageRecord) {
	text := fmt.Sprintf(
		"CRISIS ALERT\nSession: %s\nSender: %s (%s)\nKeywords: %s\nMessage: %s",
		rec.ChannelID,
		rec.Alias,
		rec.SenderID,
		strings.Join(rec.CrisisKeywords, ", "),
		rec.Text,
	)

	msg := tgbotapi.NewMessage(n.ChatID, text)
	if _, err := n.BotAPI.Send(msg); err != nil {
		log.Printf("Failed to send crisis alert for message %s: %v", rec.MessageID, err)
	}
}
