package glottoguess

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

var errEmptyCompletion = errors.New("empty completion")

// AnthropicDisambiguator selects glottocodes using the Anthropic messages
// API.
type AnthropicDisambiguator struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// AnthropicOption configures an AnthropicDisambiguator.
type AnthropicOption func(*AnthropicDisambiguator)

// WithAnthropicModel overrides the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(d *AnthropicDisambiguator) { d.model = model }
}

// WithAnthropicLogger sets the logger. The default discards everything.
func WithAnthropicLogger(logger zerolog.Logger) AnthropicOption {
	return func(d *AnthropicDisambiguator) { d.logger = logger }
}

// WithAnthropicRateLimit sets the request rate limit in requests per second.
func WithAnthropicRateLimit(rps float64) AnthropicOption {
	return func(d *AnthropicDisambiguator) { d.limiter = rate.NewLimiter(rate.Limit(rps), llmLimiterBurst) }
}

// WithAnthropicBaseURL overrides the API endpoint (used by tests).
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(d *AnthropicDisambiguator) {
		d.client = anthropic.NewClient(option.WithBaseURL(url))
	}
}

// NewAnthropicDisambiguator creates a disambiguator backed by Anthropic.
func NewAnthropicDisambiguator(apiKey string, opts ...AnthropicOption) *AnthropicDisambiguator {
	d := &AnthropicDisambiguator{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   defaultAnthropicModel,
		limiter: rate.NewLimiter(rate.Limit(llmDefaultRPS), llmLimiterBurst),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Disambiguate implements Disambiguator.
func (d *AnthropicDisambiguator) Disambiguate(ctx context.Context, language string, candidates []Candidate) (string, error) {
	task, err := buildDisambiguationTask(language, candidates)
	if err != nil {
		return "", err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", &ExternalServiceError{Service: "anthropic", Err: err}
	}

	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: llmMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: disambiguatorRole},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(task)),
		},
	})
	if err != nil {
		return "", &ExternalServiceError{Service: "anthropic", Err: err}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 && len(resp.Content) == 0 {
		return "", &ExternalServiceError{Service: "anthropic", Err: errEmptyCompletion}
	}

	guess := strings.TrimSpace(sb.String())
	if !checkGuess(guess, candidates) {
		d.logger.Warn().Str("language", language).Str("guess", guess).
			Msg("model returned a glottocode outside the candidate set")
		return "", nil
	}
	return guess, nil
}
