package handler

import (
	"github.com/go-telegram/bot"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/service"
	"github.com/evernook/solace/internal/telegram"
	"github.com/evernook/solace/internal/workflow"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot            *bot.Bot
	cfg            *config.Config
	userService    *service.UserService
	sessionService *service.SessionService
	moodService    *service.MoodService
	guard          *service.RequestGuard
	orchestrator   *workflow.Orchestrator
	dispatcher     *workflow.Dispatcher
	steps          workflow.StepStore
	care           *telegram.CareLogger
	botUsername    string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot            *bot.Bot
	Cfg            *config.Config
	UserService    *service.UserService
	SessionService *service.SessionService
	MoodService    *service.MoodService
	Guard          *service.RequestGuard
	Orchestrator   *workflow.Orchestrator
	Dispatcher     *workflow.Dispatcher
	Steps          workflow.StepStore
	Care           *telegram.CareLogger
	BotUsername    string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:            deps.Bot,
		cfg:            deps.Cfg,
		userService:    deps.UserService,
		sessionService: deps.SessionService,
		moodService:    deps.MoodService,
		guard:          deps.Guard,
		orchestrator:   deps.Orchestrator,
		dispatcher:     deps.Dispatcher,
		steps:          deps.Steps,
		care:           deps.Care,
		botUsername:    deps.BotUsername,
	}
}
