package store

import "encoding/json"

// Activity is one collected observation about a user: a rendered profile
// page, a tab of it, or one search engine's result set. Rows are immutable
// after insert.
type Activity struct {
	ID            string
	UserID        string
	Platform      string
	URL           string
	Title         string
	Content       string
	ExtractedJSON string
	Timestamp     int64 // unix ms, when the page was collected
	CreatedAt     int64 // unix ms, when the row was written
}

// Extracted decodes ExtractedJSON. Malformed or empty JSON yields an empty
// map rather than an error; rows written through InsertActivity always hold
// valid JSON.
func (a *Activity) Extracted() map[string]any {
	m := map[string]any{}
	if a.ExtractedJSON == "" {
		return m
	}
	if err := json.Unmarshal([]byte(a.ExtractedJSON), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// SetExtracted encodes m into ExtractedJSON.
func (a *Activity) SetExtracted(m map[string]any) error {
	if m == nil {
		a.ExtractedJSON = "{}"
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	a.ExtractedJSON = string(data)
	return nil
}

// Profile is the latest generated profile snapshot for a user.
type Profile struct {
	UserID      string
	ProfileJSON string
	LastUpdated int64 // unix ms
	CreatedAt   int64 // unix ms
}

// Data decodes ProfileJSON, empty map on malformed input.
func (p *Profile) Data() map[string]any {
	m := map[string]any{}
	if p.ProfileJSON == "" {
		return m
	}
	if err := json.Unmarshal([]byte(p.ProfileJSON), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// PlatformStat is a per-platform activity count.
type PlatformStat struct {
	Platform string
	Count    int
}
