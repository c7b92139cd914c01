package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/middleware"
	"github.com/evernook/solace/internal/telegram"
	"github.com/evernook/solace/internal/workflow"
)

type moodOption struct {
	Code      string
	Label     string
	Intensity decimal.Decimal
}

var moodOptions = []moodOption{
	{Code: "great", Label: "😄 Great", Intensity: decimal.NewFromInt(9)},
	{Code: "good", Label: "🙂 Good", Intensity: decimal.NewFromInt(7)},
	{Code: "okay", Label: "😐 Okay", Intensity: decimal.NewFromInt(5)},
	{Code: "low", Label: "😞 Low", Intensity: decimal.NewFromInt(3)},
	{Code: "struggling", Label: "😣 Struggling", Intensity: decimal.NewFromFloat(1.5)},
}

func (h *Handler) handleMood(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, opt := range moodOptions {
		rows = append(rows, telegram.ButtonRow(telegram.InlineButton(opt.Label, "mood_"+opt.Code)))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "How are you feeling right now?",
		ReplyMarkup: telegram.InlineKeyboard(rows...),
	})
}

func (h *Handler) handleMoodSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cq := update.CallbackQuery
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	code := strings.TrimPrefix(cq.Data, "mood_")
	var chosen *moodOption
	for i := range moodOptions {
		if moodOptions[i].Code == code {
			chosen = &moodOptions[i]
			break
		}
	}
	if chosen == nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})
		return
	}

	entry, err := h.moodService.Record(ctx, user.ID, chosen.Code, chosen.Intensity, "")
	if err != nil {
		slog.Error("record mood", "user_id", user.ID, "error", err)
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cq.ID,
			Text:            "Couldn't save that, please try again.",
		})
		return
	}

	recent, err := h.moodService.Recent(ctx, user.ID, config.RecentMoodWindow)
	if err != nil {
		slog.Warn("load recent moods", "user_id", user.ID, "error", err)
	}

	// The entry ID makes the run deterministic so a dispatcher retry
	// resumes the memoized run.
	err = h.dispatcher.Send(workflow.Event{
		Name:  workflow.EventMoodUpdated,
		Key:   fmt.Sprintf("user-%d", user.ID),
		RunID: fmt.Sprintf("mood-%d", entry.ID),
		Data: workflow.RecommendationInput{
			UserID:              user.ID,
			RecentMoods:         recent,
			CompletedActivities: []string{},
			Preferences:         user.Preferences,
		},
	})
	if err != nil {
		slog.Error("dispatch mood recommendations", "user_id", user.ID, "error", err)
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})

	if cq.Message.Message != nil {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    cq.Message.Message.Chat.ID,
			MessageID: cq.Message.Message.ID,
			Text:      fmt.Sprintf("%s — noted. I'll put together a few activity ideas, check /activities in a minute.", chosen.Label),
		})
	}
}

func (h *Handler) handleActivities(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	recs, err := h.moodService.LatestRecommendations(ctx, user.ID)
	if err != nil {
		slog.Error("latest recommendations", "user_id", user.ID, "error", err)
		return
	}
	if len(recs) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "No activity suggestions yet. Log your mood with /mood and I'll prepare some.",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("🌿 *Activity suggestions for you:*\n\n")
	for i, r := range recs {
		sb.WriteString(fmt.Sprintf("*%d. %s*", i+1, r.Activity))
		if r.Duration != "" {
			sb.WriteString(fmt.Sprintf(" (%s", r.Duration))
			if r.Difficulty != "" {
				sb.WriteString(", " + r.Difficulty)
			}
			sb.WriteString(")")
		}
		sb.WriteString("\n")
		if r.Reasoning != "" {
			sb.WriteString(r.Reasoning + "\n")
		}
		if r.Benefit != "" {
			sb.WriteString("_" + r.Benefit + "_\n")
		}
		sb.WriteString("\n")
	}

	if err := telegram.SendLongMessage(ctx, b, chatID, sb.String(), nil); err != nil {
		slog.Error("send activities", "chat_id", chatID, "error", err)
	}
}
