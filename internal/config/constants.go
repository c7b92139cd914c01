package config

import "time"

const (
	// Request cooldown between AI messages
	Cooldown = 3 * time.Second

	// Session limits
	MaxSessionsPerUser    = 10
	MaxMessagesPerSession = 200

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Async workflow budget (transcript analysis, recommendations)
	WorkflowTimeout = 3 * time.Minute

	// Rate limit (messages per minute per chat)
	RateLimitPerMinute = 10

	// Stale request cleanup
	StaleRequestCleanup = 60 * time.Second
	StaleRequestAge     = 3 * time.Minute

	// Sessions per page in /sessions
	SessionsPerPage = 5

	// How many recent moods feed the recommendation workflow
	RecentMoodWindow = 10
)

// SystemPrompt is the therapeutic persona and guardrails used for
// response generation.
const SystemPrompt = `You are an AI therapist assistant. Your role is to:
1. Provide empathetic and supportive responses
2. Use evidence-based therapeutic techniques
3. Maintain professional boundaries
4. Monitor for risk factors
5. Guide users toward their therapeutic goals`
