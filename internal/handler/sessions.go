package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/domain"
	"github.com/evernook/solace/internal/middleware"
	"github.com/evernook/solace/internal/telegram"
	"github.com/evernook/solace/internal/workflow"
)

func (h *Handler) handleNewSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	// Closing the old session triggers its retrospective analysis.
	if user.ActiveSessionID != nil {
		h.closeAndAnalyze(ctx, user, *user.ActiveSessionID)
	}

	if _, err := h.sessionService.CreateNew(ctx, user); err != nil {
		slog.Error("create session", "user_id", user.ID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "😔 Couldn't start a new conversation right now. Please try again.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✨ Fresh start. What's on your mind?",
	})
}

func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if user.ActiveSessionID == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "You don't have an open conversation. Just write me anything to start one.",
		})
		return
	}

	h.closeAndAnalyze(ctx, user, *user.ActiveSessionID)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🌙 Conversation closed. I'll prepare a short review — check /summary in a little while. Take care of yourself.",
	})
}

// closeAndAnalyze closes the session and hands its transcript to the
// retrospective analysis workflow.
func (h *Handler) closeAndAnalyze(ctx context.Context, user *domain.User, sessionID string) {
	if err := h.sessionService.Close(ctx, user, sessionID); err != nil {
		slog.Error("close session", "session_id", sessionID, "error", err)
		return
	}

	transcript, err := h.sessionService.Transcript(ctx, sessionID)
	if err != nil {
		slog.Error("load transcript", "session_id", sessionID, "error", err)
		return
	}
	if strings.TrimSpace(transcript) == "" {
		// Nothing to review; the workflow would reject it anyway.
		return
	}

	err = h.dispatcher.Send(workflow.Event{
		Name:  workflow.EventSessionCreated,
		Key:   sessionID,
		RunID: "session-analysis-" + sessionID,
		Data: workflow.SessionAnalysisInput{
			SessionID:  sessionID,
			Transcript: transcript,
		},
	})
	if err != nil {
		slog.Error("dispatch session analysis", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	text, kb, err := h.sessionsPage(ctx, user, 0)
	if err != nil {
		slog.Error("list sessions", "user_id", user.ID, "error", err)
		return
	}

	params := &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	b.SendMessage(ctx, params)
}

func (h *Handler) handleSessionsPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cq := update.CallbackQuery
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})

	user := middleware.GetUser(ctx)
	if user == nil || cq.Message.Message == nil {
		return
	}

	page, err := strconv.Atoi(strings.TrimPrefix(cq.Data, "sessions_page_"))
	if err != nil || page < 0 {
		return
	}

	text, kb, err := h.sessionsPage(ctx, user, page)
	if err != nil {
		slog.Error("list sessions", "user_id", user.ID, "error", err)
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    cq.Message.Message.Chat.ID,
		MessageID: cq.Message.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	b.EditMessageText(ctx, params)
}

func (h *Handler) handleSwitchSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cq := update.CallbackQuery
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	sessionID := strings.TrimPrefix(cq.Data, "switch_session_")
	session, err := h.sessionService.GetByID(ctx, sessionID)
	if err != nil || session.UserID != user.ID {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cq.ID,
			Text:            "That conversation is gone.",
		})
		return
	}

	if err := h.userService.SetActiveSession(ctx, user.ID, &session.ID); err != nil {
		slog.Error("switch session", "session_id", sessionID, "error", err)
		return
	}
	user.ActiveSessionID = &session.ID

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
		Text:            "Switched. Note: closed conversations stay closed.",
	})

	if cq.Message.Message != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: cq.Message.Message.Chat.ID,
			Text:   fmt.Sprintf("📂 Now continuing the conversation from %s.", session.CreatedAt.Format("Jan 2, 15:04")),
		})
	}
}

func (h *Handler) sessionsPage(ctx context.Context, user *domain.User, page int) (string, *models.InlineKeyboardMarkup, error) {
	total, err := h.sessionService.CountByUser(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	if total == 0 {
		return "You have no conversations yet. Just write me anything to start one.", nil, nil
	}

	sessions, err := h.sessionService.ListByUser(ctx, user.ID, config.SessionsPerPage, page*config.SessionsPerPage)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("🗂 *Your conversations:*\n\n")

	var rows [][]models.InlineKeyboardButton
	for _, s := range sessions {
		marker := "🔒"
		if s.Status == domain.SessionActive {
			marker = "💬"
		}
		label := fmt.Sprintf("%s %s", marker, s.CreatedAt.Format("Jan 2, 15:04"))
		if user.ActiveSessionID != nil && *user.ActiveSessionID == s.ID {
			label += " • current"
		}
		rows = append(rows, telegram.ButtonRow(telegram.InlineButton(label, "switch_session_"+s.ID)))
	}

	totalPages := int((total + config.SessionsPerPage - 1) / config.SessionsPerPage)
	if totalPages > 1 {
		rows = append(rows, telegram.PaginationRow(page, totalPages, "sessions_page"))
	}

	sb.WriteString("Tap a conversation to make it current.")
	return sb.String(), telegram.InlineKeyboard(rows...), nil
}
