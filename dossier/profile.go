package dossier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/empreinte/dossier/internal/llm"
	"github.com/hazyhaar/empreinte/dossier/internal/store"
)

// GenerateProfile aggregates all of a user's stored activities into a
// profile snapshot, persists it (replacing any prior snapshot), and returns
// it. A user without activities yields ErrNoActivities and nothing is
// persisted.
func (s *Service) GenerateProfile(ctx context.Context, userID string) (map[string]any, error) {
	activities, err := s.store.ListActivities(ctx, userID, "", s.config.GenerateReadLimit)
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}
	if len(activities) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoActivities, userID)
	}

	breakdown := make(map[string]int)
	frequency := make(map[string]int)
	contentTypes := make(map[string]int)
	for _, a := range activities {
		breakdown[a.Platform]++
		t := time.UnixMilli(a.Timestamp).UTC()
		frequency[t.Format("2006-01")]++
		contentTypes[activityType(a)]++
	}

	// ListActivities returns newest first.
	latest := time.UnixMilli(activities[0].Timestamp).UTC()
	earliest := time.UnixMilli(activities[len(activities)-1].Timestamp).UTC()
	spanDays := int(latest.Sub(earliest).Hours() / 24)

	platformsActive := make([]string, 0, len(breakdown))
	for p := range breakdown {
		platformsActive = append(platformsActive, p)
	}
	sort.Strings(platformsActive)

	profile := map[string]any{
		"user_id":      userID,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"activity_summary": map[string]any{
			"total_activities":   len(activities),
			"platform_breakdown": breakdown,
			"date_range": map[string]any{
				"earliest_activity": earliest.Format(time.RFC3339),
				"latest_activity":   latest.Format(time.RFC3339),
				"span_days":         spanDays,
			},
			"activity_frequency": frequency,
		},
		"ai_analysis":         s.extractor.Summarize(ctx, summaryWindow(activities)),
		"timeline_highlights": timelineHighlights(activities),
		"digital_footprint": map[string]any{
			"platforms_active":    platformsActive,
			"content_types":       contentTypes,
			"engagement_patterns": map[string]any{},
		},
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := s.store.UpsertProfile(ctx, userID, string(data)); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.Info("dossier: profile generated",
		"user_id", userID, "total_activities", len(activities))
	return profile, nil
}

// summaryWindow selects the most recent activities (at most 20, read order)
// for the LLM analysis.
func summaryWindow(activities []*store.Activity) []llm.ActivitySummary {
	window := activities
	if len(window) > 20 {
		window = window[:20]
	}
	out := make([]llm.ActivitySummary, 0, len(window))
	for _, a := range window {
		out = append(out, llm.ActivitySummary{
			Platform: a.Platform,
			Type:     activityType(a),
			Date:     time.UnixMilli(a.Timestamp).UTC().Format("2006-01-02"),
			Preview:  a.Content,
		})
	}
	return out
}

// timelineHighlights looks at the 10 newest activities, drops those without
// extracted fields, scores the rest, and returns the 5 most significant in
// non-increasing score order. Stable sort: ties keep recency order.
func timelineHighlights(activities []*store.Activity) []map[string]any {
	window := activities
	if len(window) > 10 {
		window = window[:10]
	}

	highlights := make([]map[string]any, 0, len(window))
	for _, a := range window {
		ex := a.Extracted()
		if len(ex) == 0 {
			continue
		}
		title := a.Title
		if title == "" {
			title = "Activity"
		}
		highlights = append(highlights, map[string]any{
			"date":         time.UnixMilli(a.Timestamp).UTC().Format("2006-01-02"),
			"platform":     a.Platform,
			"title":        title,
			"type":         activityType(a),
			"significance": significance(a.Platform, ex),
		})
	}

	sort.SliceStable(highlights, func(i, j int) bool {
		return highlights[i]["significance"].(float64) > highlights[j]["significance"].(float64)
	})
	if len(highlights) > 5 {
		highlights = highlights[:5]
	}
	return highlights
}

// significance is the heuristic timeline ranking signal: a per-platform base
// plus capped boosts for follower and repository counts.
func significance(platform string, extracted map[string]any) float64 {
	score := 1.0
	switch platform {
	case "github":
		score = 1.2
	case "zhihu":
		score = 1.1
	case "search_google":
		score = 0.8
	}
	if f, ok := asFloat(extracted["followers"]); ok {
		score += math.Min(f/1000, 2.0)
	}
	if f, ok := asFloat(extracted["repositories_count"]); ok {
		score += math.Min(f/10, 1.5)
	}
	return score
}

// activityType reads extracted_data.activity_type with the conventional
// "unknown" default.
func activityType(a *store.Activity) string {
	if v, ok := a.Extracted()["activity_type"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// asFloat coerces the numeric shapes extracted fields arrive in: ints from
// collectors, float64 from JSON decoding, json.Number, and digit strings
// from LLM responses.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
