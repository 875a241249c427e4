package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	"github.com/kailas-cloud/cafematch/internal/metrics"
)

const systemPrompt = `You are a cafe recommendation assistant.
Your job is to match user queries with cafe information and return relevant cafes.
You'll receive a user query, a list of cafes with their details, and user preferences.
For each cafe, assign a relevance score between 0 and 100, with 100 being the most relevant.
Base your scoring on how well the cafe matches the user's query, considering the following:
- Cafe name, about section, and tags
- Vibe tags that describe the cafe atmosphere
- Reviews that might mention what the user is looking for
- Unique menu items and regular menu items
Return only JSON in this format: [{"cafeId": 1, "relevanceScore": 85}, {"cafeId": 2, "relevanceScore": 42}]`

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature float32 = 0.3

// Compile-time check: RelevanceClient implements score.Scorer.
var _ score.Scorer = (*RelevanceClient)(nil)

// RelevanceClient scores cafés via an OpenAI-compatible chat completion API.
type RelevanceClient struct {
	client      *openai.Client
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// Config holds the relevance service settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewRelevanceClient creates an OpenAI-compatible relevance client.
func NewRelevanceClient(cfg *Config) *RelevanceClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	return &RelevanceClient{
		client:      openai.NewClientWithConfig(clientCfg),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      l,
	}
}

// Score implements score.Scorer. Scores come back on the percent scale.
func (c *RelevanceClient) Score(
	ctx context.Context, query string, prefs preference.Set, cafes []cafe.Cafe,
) (score.Set, error) {
	if c.apiKey == "" {
		return score.Set{}, domain.ErrMissingCredential
	}

	userMsg, err := buildUserMessage(query, prefs, cafes)
	if err != nil {
		return score.Set{}, fmt.Errorf("build prompt: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: wireTemperature(c.temperature),
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.RelevanceRequestsTotal.WithLabelValues(string(score.SourceRemote), "unavailable").Inc()
		return score.Set{}, parseAPIError(err)
	}
	metrics.RelevanceRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		metrics.RelevanceRequestsTotal.WithLabelValues(string(score.SourceRemote), "malformed").Inc()
		return score.Set{}, fmt.Errorf("empty choices: %w", domain.ErrMalformedResponse)
	}

	scores, err := ParseScores(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.RelevanceRequestsTotal.WithLabelValues(string(score.SourceRemote), "malformed").Inc()
		c.logger.Debug("unparsable relevance payload",
			zap.String("model", c.model),
			zap.Int("content_len", len(resp.Choices[0].Message.Content)),
		)
		return score.Set{}, err
	}

	metrics.RelevanceRequestsTotal.WithLabelValues(string(score.SourceRemote), "success").Inc()
	c.logger.Debug("relevance scored",
		zap.String("model", c.model),
		zap.Int("scores", len(scores)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", duration),
	)

	return score.Set{Scores: scores, Scale: score.Percent, Source: score.SourceRemote}, nil
}

// wireTemperature maps zero to the smallest positive float32: go-openai omits a
// zero temperature, which leaves the provider default in effect.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *RelevanceClient) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return domain.ErrMissingCredential
	}
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func buildUserMessage(query string, prefs preference.Set, cafes []cafe.Cafe) (string, error) {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", err
	}
	projections := make([]cafe.Projection, len(cafes))
	for i := range cafes {
		projections[i] = cafes[i].Project()
	}
	cafesJSON, err := json.Marshal(projections)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %q\n", query)
	fmt.Fprintf(&b, "User Preferences: %s\n", prefsJSON)
	fmt.Fprintf(&b, "Cafe data: %s", cafesJSON)
	return b.String(), nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrServiceUnavailable for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrServiceUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("relevance API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("relevance API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("relevance request timed out: %w", wrap)
	}

	return fmt.Errorf("relevance request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
