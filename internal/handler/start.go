package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/evernook/solace/internal/middleware"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID

	welcomeText := fmt.Sprintf(
		"👋 Hi, *%s*!\n\n"+
			"I'm Solace, a supportive companion you can talk to anytime.\n"+
			"Whatever is on your mind, just write it here.\n\n"+
			"📋 *Commands:*\n"+
			"/new — Start a fresh conversation\n"+
			"/sessions — Your past conversations\n"+
			"/end — Close the current conversation\n"+
			"/mood — Log how you're feeling\n"+
			"/activities — Activity suggestions for you\n"+
			"/summary — Review of your last closed conversation\n\n"+
			"⚠️ I'm not a replacement for professional care. "+
			"If you're in crisis, please contact your local emergency services.",
		user.FirstName,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      welcomeText,
		ParseMode: models.ParseModeMarkdown,
	})
}
