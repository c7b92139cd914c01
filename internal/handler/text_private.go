package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/domain"
	"github.com/evernook/solace/internal/middleware"
	"github.com/evernook/solace/internal/telegram"
	"github.com/evernook/solace/internal/workflow"
)

// HandleTextPrivate processes a free-form chat message: it runs the
// message workflow synchronously and replies before returning, so the
// per-chat request guard covers the whole exchange.
func (h *Handler) HandleTextPrivate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	msg := update.Message
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := msg.Chat.ID

	if err := h.guard.TryAcquire(ctx, chatID); err != nil {
		if errors.Is(err, domain.ErrActiveRequest) {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "⏳ I'm still thinking about your previous message. One moment, please.",
			})
			return
		}
		slog.Error("acquire request slot", "chat_id", chatID, "error", err)
		return
	}
	defer h.guard.Release(context.WithoutCancel(ctx), chatID)

	if err := h.userService.UpdateLastInteraction(ctx, user.ID); err != nil {
		slog.Warn("update last interaction", "user_id", user.ID, "error", err)
	}

	session, err := h.sessionService.FindOrCreateActive(ctx, user)
	if err != nil {
		slog.Error("find or create session", "user_id", user.ID, "error", err)
		h.care.LogError(err, "find or create session")
		return
	}

	count, err := h.sessionService.CountMessages(ctx, session.ID)
	if err != nil {
		slog.Warn("count messages", "session_id", session.ID, "error", err)
	}
	if count >= config.MaxMessagesPerSession {
		session, err = h.sessionService.CreateNew(ctx, user)
		if err != nil {
			slog.Error("rotate full session", "user_id", user.ID, "error", err)
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📝 That conversation got quite long, so I started a fresh one. Your previous messages are saved under /sessions.",
		})
	}

	history, err := h.sessionService.Messages(ctx, session.ID)
	if err != nil {
		slog.Error("load history", "session_id", session.ID, "error", err)
		return
	}
	memory, err := h.sessionService.Memory(ctx, session.ID)
	if err != nil {
		slog.Error("load memory", "session_id", session.ID, "error", err)
		return
	}

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	defer stopTyping()

	// The Telegram message ID makes the run ID deterministic: a redelivered
	// update resumes the same memoized run instead of repeating side effects.
	runID := fmt.Sprintf("msg-%d-%d", chatID, msg.ID)
	wfCtx, cancel := context.WithTimeout(ctx, config.WorkflowTimeout)
	defer cancel()

	run, err := workflow.NewRun(wfCtx, h.steps, workflow.EventMessageProcess, runID)
	if err != nil {
		slog.Error("hydrate workflow run", "run", runID, "error", err)
		h.care.LogError(err, "hydrate workflow run")
		return
	}

	result := h.orchestrator.ProcessMessage(wfCtx, run, workflow.ProcessMessageInput{
		SessionID:    session.ID,
		Message:      text,
		History:      history,
		Memory:       memory,
		Goals:        user.Goals,
		SystemPrompt: config.SystemPrompt,
	})

	if _, err := h.sessionService.AppendMessage(ctx, session.ID, domain.RoleUser, text, nil); err != nil {
		slog.Error("append user message", "session_id", session.ID, "error", err)
	}
	meta := &domain.MessageMeta{
		Analysis: &result.Analysis,
		Progress: &domain.ProgressSnapshot{
			EmotionalState: result.Analysis.EmotionalState,
			RiskLevel:      result.Analysis.RiskLevel,
		},
	}
	if _, err := h.sessionService.AppendMessage(ctx, session.ID, domain.RoleAssistant, result.Response, meta); err != nil {
		slog.Error("append assistant message", "session_id", session.ID, "error", err)
	}
	if err := h.sessionService.ReplaceMemory(ctx, session.ID, result.UpdatedMemory); err != nil {
		slog.Error("persist memory", "session_id", session.ID, "error", err)
	}

	stopTyping()
	replyTo := msg.ID
	if err := telegram.SendLongMessage(ctx, b, chatID, result.Response, &replyTo); err != nil {
		slog.Error("send reply", "chat_id", chatID, "error", err)
	}
}
