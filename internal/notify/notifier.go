package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "bitor-console/internal/errors"
	"bitor-console/internal/store"
	"bitor-console/internal/types"
)

// pocketBaseTime is the layout PocketBase uses for record timestamps
const pocketBaseTime = "2006-01-02 15:04:05.000Z"

// Sender delivers Telegram messages. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier forwards user messages to a Telegram chat while the
// notifications setting is on.
type Notifier struct {
	sender Sender
	chatID int64
	logger *slog.Logger

	mu       sync.Mutex
	enabled  bool
	location *time.Location
	sent     map[string]struct{}

	unsubscribe store.Unsubscriber
}

// NewNotifier creates a notifier that follows the given settings
func NewNotifier(sender Sender, chatID int64, settings store.Readable[*types.AppSettings], logger *slog.Logger) *Notifier {
	n := &Notifier{
		sender:   sender,
		chatID:   chatID,
		logger:   logger,
		location: time.UTC,
		sent:     make(map[string]struct{}),
	}
	n.unsubscribe = settings.Subscribe(n.apply)
	return n
}

func (n *Notifier) apply(s *types.AppSettings) {
	loc := time.UTC
	if s != nil && s.Timezone != "" {
		if l, err := time.LoadLocation(s.Timezone); err == nil {
			loc = l
		} else {
			n.logger.Warn("unknown timezone in settings", "timezone", s.Timezone)
		}
	}

	n.mu.Lock()
	changed := n.enabled != s.NotificationsEnabled()
	n.enabled = s.NotificationsEnabled()
	n.location = loc
	n.mu.Unlock()

	if changed {
		n.logger.Info("telegram notifications toggled", "enabled", s.NotificationsEnabled())
	}
}

// Enabled reports whether notifications are currently delivered
func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// Notify sends msg unless notifications are off or it was already sent
func (n *Notifier) Notify(ctx context.Context, msg types.UserMessage) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return false, nil
	}
	if _, dup := n.sent[msg.ID]; dup && msg.ID != "" {
		n.mu.Unlock()
		return false, nil
	}
	loc := n.location
	n.mu.Unlock()

	out := tgbotapi.NewMessage(n.chatID, Format(msg, loc))
	if _, err := n.sender.Send(out); err != nil {
		n.logger.Error("failed to send telegram message", "error", err, "message_id", msg.ID)
		return false, apperrors.Wrap(err, "Telegram delivery failed.", true)
	}

	n.mu.Lock()
	if msg.ID != "" {
		n.sent[msg.ID] = struct{}{}
	}
	n.mu.Unlock()

	n.logger.Debug("notification sent", "message_id", msg.ID, "type", msg.Type)
	return true, nil
}

// Close stops following settings changes
func (n *Notifier) Close() {
	n.unsubscribe()
}

// Format renders a user message as plain Telegram text
func Format(msg types.UserMessage, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(severity(msg.Type))), msg.Title)
	if msg.Content != "" {
		b.WriteString("\n\n")
		b.WriteString(truncate(msg.Content, 3500))
	}
	if created, err := parseTime(msg.Created); err == nil {
		b.WriteString("\n\n")
		b.WriteString(created.In(loc).Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

func severity(t types.MessageType) types.MessageType {
	switch t {
	case types.MessageInfo, types.MessageWarning, types.MessageError, types.MessageSuccess:
		return t
	}
	return types.MessageInfo
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(pocketBaseTime, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// truncate limits s to maxLen bytes without splitting a UTF-8 sequence
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
