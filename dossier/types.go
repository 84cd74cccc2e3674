// Package dossier builds digital-footprint dossiers: it crawls public
// profile pages and search results for a handle, extracts structured fields
// by pattern matching with optional LLM enhancement, persists activity
// records in SQLite, and aggregates them into a profile with statistics and
// timeline highlights.
package dossier

import (
	"time"

	"github.com/hazyhaar/empreinte/dossier/internal/store"
)

// Re-export store types for the public API.
type (
	Activity     = store.Activity
	Profile      = store.Profile
	PlatformStat = store.PlatformStat
)

// Schema is the SQL schema the service expects; pass it to dbopen.WithSchema
// when opening the database.
const Schema = store.Schema

// CrawlResult is the outcome of one crawl invocation.
type CrawlResult struct {
	UserID    string
	StartedAt time.Time

	// Collected holds every persisted record, in collection order.
	Collected []*Activity

	// Errors lists per-source and per-URL failures as human-readable
	// strings, in the order they occurred. A non-empty list still means a
	// partial success.
	Errors []string
}

// TimelineItem is one activity inside a timeline date group.
type TimelineItem struct {
	Platform       string `json:"platform"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	Time           string `json:"time"`
	ContentPreview string `json:"content_preview"`
}

// TimelineEntry groups a day's activities, newest day first.
type TimelineEntry struct {
	Date  string         `json:"date"`
	Items []TimelineItem `json:"items"`
}

// Stats summarises a user's stored activity.
type Stats struct {
	UserID          string         `json:"user_id"`
	TotalActivities int            `json:"total_activities"`
	PlatformStats   map[string]int `json:"platform_stats"`
	LastActivity    string         `json:"last_activity,omitempty"`
}
