package dossier

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/empreinte/dossier/internal/store"
)

// PreviewLen caps timeline content previews in runes.
const PreviewLen = 200

// Activities returns a user's stored activities, newest first. platform
// empty means all platforms; limit <= 0 applies the store default.
func (s *Service) Activities(ctx context.Context, userID, platform string, limit int) ([]*Activity, error) {
	return s.store.ListActivities(ctx, userID, platform, limit)
}

// Timeline groups a user's activities by calendar day, newest day first,
// with items inside a day newest first.
func (s *Service) Timeline(ctx context.Context, userID string) ([]TimelineEntry, error) {
	activities, err := s.store.ListActivities(ctx, userID, "", s.config.GenerateReadLimit)
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}

	var entries []TimelineEntry
	for _, a := range activities {
		t := time.UnixMilli(a.Timestamp).UTC()
		date := t.Format("2006-01-02")
		item := TimelineItem{
			Platform:       a.Platform,
			Title:          a.Title,
			URL:            a.URL,
			Time:           t.Format("15:04:05"),
			ContentPreview: previewContent(a.Content),
		}
		// Input is timestamp-ordered, so a day's items are contiguous.
		if n := len(entries); n > 0 && entries[n-1].Date == date {
			entries[n-1].Items = append(entries[n-1].Items, item)
			continue
		}
		entries = append(entries, TimelineEntry{Date: date, Items: []TimelineItem{item}})
	}
	return entries, nil
}

// UserStats reports a user's activity totals and last-seen time.
func (s *Service) UserStats(ctx context.Context, userID string) (*Stats, error) {
	total, err := s.store.CountActivities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	perPlatform, err := s.store.PlatformStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	lastAt, err := s.store.LastActivityAt(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("last activity: %w", err)
	}

	stats := &Stats{
		UserID:          userID,
		TotalActivities: total,
		PlatformStats:   make(map[string]int, len(perPlatform)),
	}
	for _, st := range perPlatform {
		stats.PlatformStats[st.Platform] = st.Count
	}
	if lastAt > 0 {
		stats.LastActivity = time.UnixMilli(lastAt).UTC().Format(time.RFC3339)
	}
	return stats, nil
}

// UserProfile returns the stored profile snapshot, nil when none has been
// generated yet.
func (s *Service) UserProfile(ctx context.Context, userID string) (*store.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLen {
		return content
	}
	return string(runes[:PreviewLen]) + "..."
}
