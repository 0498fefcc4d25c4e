// Package research wraps the LLM-based research service that produces raw
// tool Documents. The curation core treats this as an opaque data source:
// the returned self-reported confidence is surfaced for logging only and
// never feeds the quality gate.
package research

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/internal/resilience"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 4096
)

// Client produces a fresh research snapshot for a tracked tool.
type Client interface {
	Collect(ctx context.Context, tool model.Tool) (*Snapshot, error)
}

// Snapshot is the raw research output: a structured Document plus the
// service's self-reported collection confidence.
type Snapshot struct {
	Document   model.Document `json:"document"`
	Confidence float64        `json:"confidence"`
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(m string) Option {
	return func(c *sdkClient) {
		if m != "" {
			c.model = m
		}
	}
}

// WithMaxTokens overrides the default response token budget.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithRateLimit overrides the default request rate (0.5 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *sdkClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the default retry policy for API calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *sdkClient) {
		c.retry = cfg
	}
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a research client backed by the Anthropic SDK. The
// SDK's built-in retry is disabled; backoff is owned by the resilience
// layer so research and webhook calls share one policy.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		limiter:   rate.NewLimiter(0.5, 1),
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

const systemPrompt = `You are a research assistant that produces structured snapshots of AI developer tools.
Respond with a single JSON object and nothing else, with this shape:
{
  "document": {
    "description": string,
    "website_url": string,
    "docs_url": string,
    "version": {"current": string, "release_notes_url": string},
    "pricing": {"model": "free|freemium|subscription|usage_based|one_time|enterprise", "tiers": [{"name": string, "price": number}]},
    "features": [{"category": string, "name": string, "description": string}],
    "integrations": [{"integration_type": string, "integration_name": string}],
    "company": {"name": string, "founded_year": number, "employee_count": number, "headquarters": string},
    "is_open_source": boolean,
    "license_type": string,
    "metadata": {}
  },
  "confidence": number between 0 and 1
}
Omit any field you cannot establish. Do not guess.`

func (c *sdkClient) Collect(ctx context.Context, tool model.Tool) (*Snapshot, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "research: rate limit wait")
		}
	}

	prompt := "Produce a current snapshot for the AI tool \"" + tool.Slug + "\""
	if tool.Name != "" {
		prompt += " (" + tool.Name + ")"
	}
	if tool.WebsiteURL != "" {
		prompt += " at " + tool.WebsiteURL
	}
	prompt += "."

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}

	var msg *sdk.Message
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		m, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return classifyAPIError(err)
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "research: collect %s", tool.Slug)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	snap, err := ParseSnapshot(text.String())
	if err != nil {
		return nil, eris.Wrapf(err, "research: parse snapshot for %s", tool.Slug)
	}

	if snap.Document.CollectedAt == nil {
		now := time.Now().UTC()
		snap.Document.CollectedAt = &now
	}
	return snap, nil
}

// classifyAPIError marks rate-limit and server-side API failures as
// transient so the retry loop picks them up.
func classifyAPIError(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) && resilience.IsTransientHTTPStatus(apierr.StatusCode) {
		return resilience.NewTransientError(err, apierr.StatusCode)
	}
	return err
}
