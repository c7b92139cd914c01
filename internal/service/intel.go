package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/evernook/solace/internal/config"
)

// IntelService adapts the OpenRouter chat-completions API to the
// workflow's TextIntelligence port. The model is treated as untrusted:
// everything it returns goes back as raw text and the workflow owns
// parsing and fallbacks.
type IntelService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewIntelService(apiKey, model string) *IntelService {
	return &IntelService{
		apiKey:     apiKey,
		baseURL:    "https://openrouter.ai/api/v1",
		model:      model,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Analyze asks the model for a structured insight on one therapy
// message. The JSON-only instruction is part of the adapter because it
// exists to coax this particular kind of model, not the workflow.
func (s *IntelService) Analyze(ctx context.Context, message, contextJSON string) (string, error) {
	prompt := fmt.Sprintf(`Analyze this therapy message and provide insights. Return ONLY a valid JSON object with no markdown formatting or additional text.
Message: %s
Context: %s

Required JSON structure:
{
    "emotionalState": "string",
    "themes": ["string"],
    "riskLevel": number,
    "recommendedApproach": "string",
    "progressIndicators": ["string"]
}`, message, contextJSON)

	return s.complete(ctx, prompt)
}

// Respond generates free text for an assembled prompt.
func (s *IntelService) Respond(ctx context.Context, prompt string) (string, error) {
	return s.complete(ctx, prompt)
}

func (s *IntelService) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.Chat(ctx, []ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *IntelService) Chat(ctx context.Context, messages []ChatMessage) (*ChatResponse, error) {
	payload, err := json.Marshal(ChatRequest{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited by OpenRouter (429)")
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("OpenRouter service unavailable (503)")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &chatResp, nil
}
