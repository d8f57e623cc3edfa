package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/getsentry/sentry-go"
	"golang.org/x/time/rate"

	"github.com/insightlabs/compass/pkg/metrics"
)

// AnthropicConfig configures the Anthropic-backed client. Credentials come
// from the SDK's own environment handling.
type AnthropicConfig struct {
	Logger    *slog.Logger
	Model     anthropic.Model
	MaxTokens int64
	// Phase labels this client in logs and metrics (e.g. "recommend", "chat").
	Phase string
	// RequestsPerMinute caps the call rate against the shared API quota.
	RequestsPerMinute int
}

func (cfg *AnthropicConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Model == "" {
		cfg.Model = anthropic.ModelClaudeSonnet4_5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Phase == "" {
		cfg.Phase = "compass"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	return nil
}

// Anthropic implements Client using the Anthropic API.
type Anthropic struct {
	log     *slog.Logger
	client  anthropic.Client
	model   anthropic.Model
	maxTok  int64
	phase   string
	limiter *rate.Limiter
}

// NewAnthropic creates a new Anthropic-based client.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Anthropic{
		log:     cfg.Logger,
		client:  anthropic.NewClient(),
		model:   cfg.Model,
		maxTok:  cfg.MaxTokens,
		phase:   cfg.Phase,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1),
	}, nil
}

// Complete sends the prompts to the model and returns the response text.
func (c *Anthropic) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	span := sentry.StartSpan(ctx, "gen_ai.chat", sentry.WithDescription(fmt.Sprintf("chat %s", c.model)))
	span.SetData("gen_ai.operation.name", "chat")
	span.SetData("gen_ai.request.model", string(c.model))
	span.SetData("gen_ai.request.max_tokens", c.maxTok)
	span.SetData("gen_ai.system", "anthropic")
	ctx = span.Context()
	defer span.Finish()

	start := time.Now()
	c.log.Debug("text-generation call starting", "phase", c.phase, "model", c.model, "userPromptLen", len(userPrompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTok,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	duration := time.Since(start)
	metrics.RecordLLMRequest(c.phase, duration, err)
	if err != nil {
		c.log.Warn("text-generation call failed", "phase", c.phase, "duration", duration, "error", err)
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	c.log.Debug("text-generation call completed",
		"phase", c.phase,
		"duration", duration,
		"stopReason", msg.StopReason,
		"inputTokens", msg.Usage.InputTokens,
		"outputTokens", msg.Usage.OutputTokens,
	)
	metrics.RecordLLMTokens(msg.Usage.InputTokens, msg.Usage.OutputTokens)
	span.SetData("gen_ai.usage.input_tokens", msg.Usage.InputTokens)
	span.SetData("gen_ai.usage.output_tokens", msg.Usage.OutputTokens)
	span.Status = sentry.SpanStatusOK

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("no text content in response")
}
