package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini-backed extractor.
type GeminiConfig struct {
	APIKey string

	// Model name. Default: "gemini-2.0-flash".
	Model string

	// MaxRetries for retriable API errors (HTTP 500/503). Default: 2.
	MaxRetries int

	// RetryDelay between retries. Default: 2s.
	RetryDelay time.Duration

	// MaxPromptContent caps the page content excerpt embedded in the
	// enhancement prompt, in runes. Default: 3000.
	MaxPromptContent int

	Logger *slog.Logger
}

func (c *GeminiConfig) defaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.MaxPromptContent <= 0 {
		c.MaxPromptContent = 3000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Gemini implements Extractor over the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
	log    *slog.Logger
}

// NewGemini creates the Gemini extractor.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: gemini API key is required")
	}
	cfg.defaults()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		cfg:    cfg,
		log:    cfg.Logger.With("component", "llm"),
	}, nil
}

const enhancePromptFmt = `Analyze the following %s page content from %s and extract structured information about the user.

Content:
%s

Return a JSON object with any of these keys you can determine:
- username or display_name
- bio or description
- skills or interests (array of strings)
- activity_type (what kind of activity this page shows)
- activity_date
- key_metrics (numbers like followers or post counts)
- topics (array of strings)

Omit keys you cannot determine. Return only the JSON object.`

// Enhance extracts structured fields from page content with one model call
// (temperature 0.1, 800 output tokens).
func (g *Gemini) Enhance(ctx context.Context, content, platform, pageURL string) map[string]any {
	excerpt := truncateRunes(content, g.cfg.MaxPromptContent)
	prompt := fmt.Sprintf(enhancePromptFmt, platform, pageURL, excerpt)

	text, err := g.generate(ctx, prompt, 0.1, 800)
	if err != nil {
		g.log.Warn("llm: enhance failed", "platform", platform, "url", pageURL, "error", err)
		return map[string]any{
			"error":       err.Error(),
			"raw_content": truncateRunes(content, MaxEchoLen),
		}
	}
	return parseFields(text)
}

const summarizePromptFmt = `Based on the following recent activities of a user across platforms, produce a profile analysis.

Activities:
%s

Return a JSON object with these keys:
- personality_traits (array of strings)
- interests (array of strings)
- activity_pattern (string)
- technical_skills (array of strings)
- social_presence (string)
- engagement_style (string)
- content_themes (array of strings)

Return only the JSON object.`

// Summarize analyses the most recent activities (at most 20) with one model
// call (temperature 0.2, 1000 output tokens).
func (g *Gemini) Summarize(ctx context.Context, activities []ActivitySummary) map[string]any {
	if len(activities) == 0 {
		return map[string]any{"summary": "No activities found"}
	}

	window := activities
	if len(window) > 20 {
		window = window[:20]
	}

	var sb strings.Builder
	for _, a := range window {
		typ := a.Type
		if typ == "" {
			typ = "unknown"
		}
		fmt.Fprintf(&sb, "- [%s] %s on %s: %s\n",
			a.Date, typ, a.Platform, truncateRunes(a.Preview, MaxPreviewLen))
	}

	text, err := g.generate(ctx, fmt.Sprintf(summarizePromptFmt, sb.String()), 0.2, 1000)
	if err != nil {
		g.log.Warn("llm: summarize failed", "activity_count", len(activities), "error", err)
		return map[string]any{
			"error":          err.Error(),
			"activity_count": len(activities),
			"platforms":      distinctPlatforms(activities),
		}
	}
	return parseFields(text)
}

// generate performs one GenerateContent call, retrying on HTTP 500/503.
func (g *Gemini) generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  maxTokens,
		ResponseMIMEType: "application/json",
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	var err error
	for i := 0; i <= g.cfg.MaxRetries; i++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, cfg)
		if err == nil {
			break
		}
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) && i < g.cfg.MaxRetries {
			g.log.Warn("llm: retriable API error", "code", apiErr.Code, "attempt", i+1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.cfg.RetryDelay):
			}
			continue
		}
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("llm: empty response")
	}
	return text, nil
}
