// Package llm polishes intake summaries with a hosted language model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/biabot/internal/domain"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai_compatible"
	ProviderAnthropic        = "anthropic"
	ProviderClaude           = "claude"
	ProviderNone             = "none"
)

const (
	summaryTemperature = 0.2
	summaryMaxTokens   = 700
	defaultTimeout     = 30 * time.Second
)

// DefaultSystemPrompt keeps the model in intake mode.
const DefaultSystemPrompt = "You are an intake assistant. Stay in intake mode only. " +
	"Ask and organize project request information only. " +
	"Do not generate final deliverables or legal or financial advice."

// Config holds LLM client configuration.
type Config struct {
	Provider     string // "openai", "openai_compatible", "anthropic", "claude" or "none"
	APIKey       string
	BaseURL      string // Optional: custom API endpoint
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// Completer sends one system+user exchange to a model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Summarizer turns a submission into a contractor-ready summary. It never
// fails: any provider problem yields the caller's fallback text.
type Summarizer struct {
	completer    Completer
	systemPrompt string
	timeout      time.Duration
	logger       *slog.Logger
}

// New builds a summarizer for the configured provider. Unknown providers are
// an error; a missing API key disables polishing.
func New(cfg Config, logger *slog.Logger) (*Summarizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var completer Completer
	switch provider {
	case ProviderNone, "off", "disabled", "":
		return NewWithCompleter(nil, cfg.SystemPrompt, cfg.Timeout, logger), nil
	case ProviderOpenAI, ProviderOpenAICompatible:
		if cfg.APIKey != "" {
			completer = newOpenAICompleter(cfg)
		}
	case ProviderAnthropic, ProviderClaude:
		if cfg.APIKey != "" {
			completer = newAnthropicCompleter(cfg)
		}
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if completer == nil {
		logger.Warn("AI provider configured without API key, summaries use fallback text", "provider", provider)
	}

	return NewWithCompleter(completer, cfg.SystemPrompt, cfg.Timeout, logger), nil
}

// NewWithCompleter wraps an existing completer. A nil completer disables polishing.
func NewWithCompleter(completer Completer, systemPrompt string, timeout time.Duration, logger *slog.Logger) *Summarizer {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{completer: completer, systemPrompt: systemPrompt, timeout: timeout, logger: logger}
}

// Enabled reports whether a model is configured.
func (s *Summarizer) Enabled() bool {
	return s != nil && s.completer != nil
}

// Summarize returns the model's summary, or fallback when the model is
// disabled, fails or returns nothing.
func (s *Summarizer) Summarize(ctx context.Context, profile domain.ClientProfile, sub domain.Submission, fallback string) string {
	if !s.Enabled() {
		return fallback
	}
	prompt, err := BuildPrompt(profile, sub)
	if err != nil {
		s.logger.Warn("Failed to build summary prompt", "error", err)
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.completer.Complete(ctx, s.systemPrompt, prompt)
	if err != nil {
		s.logger.Warn("Summary generation failed, using fallback",
			"model", s.completer.Model(),
			"error", err)
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	s.logger.Debug("Summary generated",
		"model", s.completer.Model(),
		"duration_ms", time.Since(start).Milliseconds())
	return text
}

type promptProfile struct {
	ClientName          string `json:"client_name"`
	PreferredTone       string `json:"preferred_tone"`
	RequiredDisclaimers string `json:"required_disclaimers"`
}

type promptPayload struct {
	ClientProfile promptProfile     `json:"client_profile"`
	Request       domain.Submission `json:"request"`
}

// BuildPrompt renders the user prompt sent to the model.
func BuildPrompt(profile domain.ClientProfile, sub domain.Submission) (string, error) {
	data, err := json.Marshal(promptPayload{
		ClientProfile: promptProfile{
			ClientName:          profile.ClientName,
			PreferredTone:       profile.PreferredTone,
			RequiredDisclaimers: profile.RequiredDisclaimers,
		},
		Request: sub,
	})
	if err != nil {
		return "", fmt.Errorf("encode prompt payload: %w", err)
	}
	return "Convert this intake JSON into a concise contractor-ready summary. " +
		"No deliverable drafting and no strategic advice.\n\n" + string(data), nil
}
