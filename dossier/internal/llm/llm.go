// Package llm asks a language model to refine collector output and to
// summarize a user's activity history. Failures never escape as errors:
// every call returns a usable map, with an "error" key marking degraded
// results, so the profiler can always proceed.
package llm

import "context"

// MaxEchoLen caps the raw content echoed back inside failure maps.
const MaxEchoLen = 500

// MaxPreviewLen caps per-activity content previews sent to the model.
const MaxPreviewLen = 100

// ActivitySummary is the compact view of one activity sent to the model.
type ActivitySummary struct {
	Platform string
	Type     string
	Date     string
	Preview  string
}

// Extractor is the LLM boundary the profiler consumes.
type Extractor interface {
	// Enhance extracts structured fields from raw page content. The returned
	// map carries an "error" key instead of failing.
	Enhance(ctx context.Context, content, platform, pageURL string) map[string]any

	// Summarize produces a higher-level profile analysis from the most
	// recent activities. Empty input yields {"summary": "No activities
	// found"}; call failures yield {"error", "activity_count", "platforms"}.
	Summarize(ctx context.Context, activities []ActivitySummary) map[string]any
}

// Disabled is the Extractor used when no API key is configured. It returns
// the same degraded shapes a failing backend would, without any network
// calls.
type Disabled struct{}

func (Disabled) Enhance(ctx context.Context, content, platform, pageURL string) map[string]any {
	return map[string]any{
		"error":       "llm extraction disabled",
		"raw_content": truncateRunes(content, MaxEchoLen),
	}
}

func (Disabled) Summarize(ctx context.Context, activities []ActivitySummary) map[string]any {
	if len(activities) == 0 {
		return map[string]any{"summary": "No activities found"}
	}
	return map[string]any{
		"error":          "llm analysis disabled",
		"activity_count": len(activities),
		"platforms":      distinctPlatforms(activities),
	}
}

func distinctPlatforms(activities []ActivitySummary) []string {
	seen := make(map[string]struct{})
	var platforms []string
	for _, a := range activities {
		if _, ok := seen[a.Platform]; ok {
			continue
		}
		seen[a.Platform] = struct{}{}
		platforms = append(platforms, a.Platform)
	}
	return platforms
}

func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
