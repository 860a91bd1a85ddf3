package glottoguess

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultOpenAIModel = openai.GPT4oMini
	llmLimiterBurst    = 5
	llmDefaultRPS      = 1
	llmMaxTokens       = 4096
)

// OpenAIDisambiguator selects glottocodes using the OpenAI chat API.
type OpenAIDisambiguator struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// OpenAIOption configures an OpenAIDisambiguator.
type OpenAIOption func(*OpenAIDisambiguator)

// WithOpenAIModel overrides the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(d *OpenAIDisambiguator) { d.model = model }
}

// WithOpenAIClient replaces the API client (used by tests).
func WithOpenAIClient(client *openai.Client) OpenAIOption {
	return func(d *OpenAIDisambiguator) { d.client = client }
}

// WithOpenAILogger sets the logger. The default discards everything.
func WithOpenAILogger(logger zerolog.Logger) OpenAIOption {
	return func(d *OpenAIDisambiguator) { d.logger = logger }
}

// WithOpenAIRateLimit sets the request rate limit in requests per second.
func WithOpenAIRateLimit(rps float64) OpenAIOption {
	return func(d *OpenAIDisambiguator) { d.limiter = rate.NewLimiter(rate.Limit(rps), llmLimiterBurst) }
}

// NewOpenAIDisambiguator creates a disambiguator backed by OpenAI.
func NewOpenAIDisambiguator(apiKey string, opts ...OpenAIOption) *OpenAIDisambiguator {
	d := &OpenAIDisambiguator{
		client:  openai.NewClient(apiKey),
		model:   defaultOpenAIModel,
		limiter: rate.NewLimiter(rate.Limit(llmDefaultRPS), llmLimiterBurst),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Disambiguate implements Disambiguator.
func (d *OpenAIDisambiguator) Disambiguate(ctx context.Context, language string, candidates []Candidate) (string, error) {
	task, err := buildDisambiguationTask(language, candidates)
	if err != nil {
		return "", err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", &ExternalServiceError{Service: "openai", Err: err}
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: 0,
		MaxTokens:   llmMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: disambiguatorRole},
			{Role: openai.ChatMessageRoleUser, Content: task},
		},
	})
	if err != nil {
		return "", &ExternalServiceError{Service: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ExternalServiceError{Service: "openai", Err: errEmptyCompletion}
	}

	guess := strings.TrimSpace(resp.Choices[0].Message.Content)
	if !checkGuess(guess, candidates) {
		d.logger.Warn().Str("language", language).Str("guess", guess).
			Msg("model returned a glottocode outside the candidate set")
		return "", nil
	}
	return guess, nil
}
