package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	solace "github.com/evernook/solace"
	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/handler"
	"github.com/evernook/solace/internal/middleware"
	"github.com/evernook/solace/internal/repository"
	"github.com/evernook/solace/internal/service"
	"github.com/evernook/solace/internal/telegram"
	"github.com/evernook/solace/internal/workflow"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(solace.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize services
	userService := service.NewUserService(pool)
	sessionService := service.NewSessionService(pool, userService)
	moodService := service.NewMoodService(pool)
	guard := service.NewRequestGuard(pool)
	limiter := service.NewRateLimiter(pool)
	steps := service.NewWorkflowStore(pool)
	intel := service.NewIntelService(cfg.OpenRouterKey, cfg.Model)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(limiter),
			middleware.UserLoader(userService, cfg),
		),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true})
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	// Initialize care-team alert channel and workflow engine
	care := telegram.NewCareLogger(b, cfg)
	orchestrator := workflow.NewOrchestrator(intel, care, workflow.NewRiskEvaluator(), sessionService, moodService)
	dispatcher := workflow.NewDispatcher(config.WorkflowTimeout, 2)
	defer dispatcher.Close()

	dispatcher.On(workflow.EventSessionCreated, func(ctx context.Context, ev workflow.Event) error {
		in, ok := ev.Data.(workflow.SessionAnalysisInput)
		if !ok {
			return fmt.Errorf("unexpected payload for %s: %T", ev.Name, ev.Data)
		}
		run, err := workflow.NewRun(ctx, steps, ev.Name, ev.RunID)
		if err != nil {
			return err
		}
		_, err = orchestrator.AnalyzeSession(ctx, run, in)
		return err
	})

	dispatcher.On(workflow.EventMoodUpdated, func(ctx context.Context, ev workflow.Event) error {
		in, ok := ev.Data.(workflow.RecommendationInput)
		if !ok {
			return fmt.Errorf("unexpected payload for %s: %T", ev.Name, ev.Data)
		}
		run, err := workflow.NewRun(ctx, steps, ev.Name, ev.RunID)
		if err != nil {
			return err
		}
		_, err = orchestrator.RecommendActivities(ctx, run, in)
		return err
	})

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:            b,
		Cfg:            cfg,
		UserService:    userService,
		SessionService: sessionService,
		MoodService:    moodService,
		Guard:          guard,
		Orchestrator:   orchestrator,
		Dispatcher:     dispatcher,
		Steps:          steps,
		Care:           care,
		BotUsername:    me.Username,
	})

	// Register all handlers
	h.Register()

	// Register default text handler for chat messages
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		// Skip commands
		if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
			return
		}
		if update.Message.Chat.Type == "private" {
			h.HandleTextPrivate(ctx, b, update)
		}
	})

	// Start stale request cleanup goroutine
	go func() {
		ticker := time.NewTicker(config.StaleRequestCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := guard.CleanupStale(context.Background()); err != nil {
					slog.Error("cleanup stale requests", "error", err)
				}
				if err := limiter.CleanupOld(context.Background()); err != nil {
					slog.Error("cleanup rate limits", "error", err)
				}
			}
		}
	}()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
