package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/workflow"
)

// CareLogger pushes safety alerts and operational errors to the
// care-team Telegram chat. It implements workflow.AlertSink; every
// failure here is swallowed after logging, a broken channel must never
// fail a workflow run.
type CareLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewCareLogger(b *bot.Bot, cfg *config.Config) *CareLogger {
	return &CareLogger{bot: b, cfg: cfg}
}

// Notify implements workflow.AlertSink.
func (l *CareLogger) Notify(ctx context.Context, alert workflow.Alert) {
	switch alert.Kind {
	case workflow.AlertRisk:
		msg := fmt.Sprintf("🚨 *High Risk Message*\n\n*Session:* `%s`\n*Risk level:* %d\n*Excerpt:* %s\n*Time:* %s",
			alert.SessionID, alert.RiskLevel, truncate(alert.Excerpt, 500), time.Now().Format("2006-01-02 15:04:05"))
		l.send(ctx, l.cfg.CareTopicRisk, msg)
	case workflow.AlertConcern:
		msg := fmt.Sprintf("⚠️ *Session Concerns*\n\n*Session:* `%s`\n*Concerns:*\n- %s",
			alert.SessionID, strings.Join(alert.Concerns, "\n- "))
		l.send(ctx, l.cfg.CareTopicConcern, msg)
	default:
		slog.Warn("unknown alert kind", "kind", alert.Kind)
	}
}

// LogError reports an operational error to the care chat.
func (l *CareLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	ctx, cancel := contextWithTimeout()
	defer cancel()
	l.send(ctx, l.cfg.CareTopicError, msg)
}

func (l *CareLogger) send(ctx context.Context, topicID int, message string) {
	if l.cfg.CareChatID == 0 {
		return
	}

	message = truncate(message, MaxMessageLen-20)

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.CareChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send care alert", "error", err)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
