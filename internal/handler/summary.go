package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/evernook/solace/internal/domain"
	"github.com/evernook/solace/internal/middleware"
	"github.com/evernook/solace/internal/telegram"
)

func (h *Handler) handleSummary(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	report, err := h.sessionService.LatestReportByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "No conversation reviews yet. Close a conversation with /end and I'll prepare one.",
			})
			return
		}
		slog.Error("latest report", "user_id", user.ID, "error", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 *Your last conversation review*\n\n")
	if report.EmotionalSummary != "" {
		sb.WriteString(report.EmotionalSummary + "\n\n")
	}
	writeSection(&sb, "🧩 Key themes", report.KeyThemes)
	writeSection(&sb, "💡 Suggestions", report.Recommendations)
	writeSection(&sb, "📈 Progress", report.ProgressIndicators)

	if err := telegram.SendLongMessage(ctx, b, chatID, sb.String(), nil); err != nil {
		slog.Error("send summary", "chat_id", chatID, "error", err)
	}
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("*%s:*\n", title))
	for _, item := range items {
		sb.WriteString("• " + item + "\n")
	}
	sb.WriteString("\n")
}
