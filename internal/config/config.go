package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken      string `env:"BOT_TOKEN,required"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	OpenRouterKey string `env:"OPENROUTER_API_KEY,required"`

	// Model used for analysis and response generation
	Model string `env:"AI_MODEL" envDefault:"google/gemini-2.5-flash"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Care-team alert channel (Telegram chat with forum topics)
	CareChatID       int64 `env:"CARE_TELEGRAM_CHAT_ID"`
	CareTopicRisk    int   `env:"CARE_TOPIC_RISK"`
	CareTopicConcern int   `env:"CARE_TOPIC_CONCERN"`
	CareTopicError   int   `env:"CARE_TOPIC_ERROR"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
