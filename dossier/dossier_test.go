package dossier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/empreinte/dbopen"
	"github.com/hazyhaar/empreinte/dossier/internal/collect"
	"github.com/hazyhaar/empreinte/dossier/internal/llm"
	"github.com/hazyhaar/empreinte/dossier/internal/render"
	"github.com/hazyhaar/empreinte/idgen"
)

// fakeCollector returns canned records and errors without any rendering.
type fakeCollector struct {
	platform string
	records  []collect.Raw
	errs     []error
	calls    int
}

func (f *fakeCollector) Platform() string                                 { return f.platform }
func (f *fakeCollector) BuildURLs(handle string) []string                 { return nil }
func (f *fakeCollector) ExtractFields(markdown, pageURL string) map[string]any { return nil }

func (f *fakeCollector) Collect(ctx context.Context, handle string) ([]collect.Raw, []error) {
	f.calls++
	return f.records, f.errs
}

// fakeExtractor counts calls and returns fixed maps.
type fakeExtractor struct {
	enhanced       map[string]any
	summary        map[string]any
	enhanceCalls   int
	summarizeCalls int
}

func (f *fakeExtractor) Enhance(ctx context.Context, content, platform, pageURL string) map[string]any {
	f.enhanceCalls++
	return f.enhanced
}

func (f *fakeExtractor) Summarize(ctx context.Context, activities []llm.ActivitySummary) map[string]any {
	f.summarizeCalls++
	if f.summary != nil {
		return f.summary
	}
	return map[string]any{"summary": "test analysis"}
}

func noRender(ctx context.Context, pageURL string) (*render.Page, error) {
	return nil, fmt.Errorf("unexpected render of %s", pageURL)
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	cfg := &Config{Engines: []string{}}
	opts = append([]ServiceOption{WithIDGenerator(idgen.Sequential("act"))}, opts...)
	svc, err := New(db, render.Func(noRender), cfg, slog.New(slog.DiscardHandler), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func rawRecord(platform, url string, ts time.Time, fields map[string]any) collect.Raw {
	return collect.Raw{
		Platform:  platform,
		URL:       url,
		Title:     "page at " + url,
		Content:   "content from " + url,
		Extracted: fields,
		Timestamp: ts,
	}
}

// WHAT: handle validation before any collection happens.
// WHY: single-character and blank handles match everything and nothing; the
// original API contract rejects them up front.
func TestCrawl_HandleValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, handle := range []string{"", "x", " a ", "  "} {
		_, err := svc.Crawl(ctx, handle, nil, nil, false)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Crawl(%q) error = %v, want ErrInvalidInput", handle, err)
		}
	}
}

// WHAT: unknown platform and engine names are skipped, not fatal.
// WHY: the crawl catalog is config-driven; a stale client naming a removed
// platform should still get results from the remaining sources.
func TestCrawl_UnknownSourcesSkipped(t *testing.T) {
	svc := newTestService(t)
	fake := &fakeCollector{platform: "github", records: []collect.Raw{
		rawRecord("github", "https://github.com/octocat", time.Now(), map[string]any{"type": "github_profile"}),
	}}
	svc.collectors = map[string]collect.Collector{"github": fake}

	result, err := svc.Crawl(context.Background(), "octocat", []string{"myspace", "github"}, []string{"altavista"}, false)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(result.Collected) != 1 {
		t.Fatalf("collected = %d, want 1", len(result.Collected))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want none", result.Errors)
	}
}

// WHAT: records persist and per-source failures aggregate into the result.
// WHY: a partially down source must not lose the records the other URLs
// produced, and the caller needs to see what failed.
func TestCrawl_PersistsAndAggregatesErrors(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fake := &fakeCollector{
		platform: "github",
		records: []collect.Raw{
			rawRecord("github", "https://github.com/octocat", base, map[string]any{"type": "github_profile"}),
			rawRecord("github", "https://github.com/octocat?tab=followers", base.Add(time.Second), map[string]any{"followers": 42}),
		},
		errs: []error{errors.New("status 503")},
	}
	svc.collectors = map[string]collect.Collector{"github": fake}

	result, err := svc.Crawl(context.Background(), "octocat", []string{"github"}, []string{}, false)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(result.Collected) != 2 {
		t.Fatalf("collected = %d, want 2", len(result.Collected))
	}
	if result.Collected[0].ID != "act-1" || result.Collected[1].ID != "act-2" {
		t.Errorf("IDs = %s, %s, want act-1, act-2", result.Collected[0].ID, result.Collected[1].ID)
	}
	want := []string{"error crawling github: status 503"}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}

	stored, err := svc.Activities(context.Background(), "octocat", "", 0)
	if err != nil {
		t.Fatalf("Activities: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %d, want 2", len(stored))
	}
	if stored[0].Timestamp != base.Add(time.Second).UnixMilli() {
		t.Errorf("stored[0].Timestamp = %d, want the newer record first", stored[0].Timestamp)
	}
}

// WHAT: LLM enhancement merges over collector fields, enhancement winning on
// key collision; without use_llm the extractor is never called.
// WHY: the model sees the full page content and its reading of a shared key
// supersedes the regex guess.
func TestCrawl_EnhanceMergePrecedence(t *testing.T) {
	ext := &fakeExtractor{enhanced: map[string]any{"b": 3, "c": 4}}
	svc := newTestService(t, WithExtractor(ext))
	fake := &fakeCollector{platform: "github", records: []collect.Raw{
		rawRecord("github", "https://github.com/octocat", time.Now(), map[string]any{"a": 1, "b": 2}),
	}}
	svc.collectors = map[string]collect.Collector{"github": fake}
	ctx := context.Background()

	if _, err := svc.Crawl(ctx, "octocat", []string{"github"}, []string{}, false); err != nil {
		t.Fatalf("Crawl without llm: %v", err)
	}
	if ext.enhanceCalls != 0 {
		t.Fatalf("enhanceCalls = %d after use_llm=false, want 0", ext.enhanceCalls)
	}

	if _, err := svc.Crawl(ctx, "octocat", []string{"github"}, []string{}, true); err != nil {
		t.Fatalf("Crawl with llm: %v", err)
	}
	if ext.enhanceCalls != 1 {
		t.Fatalf("enhanceCalls = %d, want 1", ext.enhanceCalls)
	}

	stored, err := svc.Activities(ctx, "octocat", "", 0)
	if err != nil {
		t.Fatalf("Activities: %v", err)
	}
	// Newest first; the enhanced record was inserted second but shares the
	// collection timestamp window, so find it by extracted content.
	var got map[string]any
	for _, a := range stored {
		ex := a.Extracted()
		if _, ok := ex["c"]; ok {
			got = ex
			break
		}
	}
	want := map[string]any{"a": float64(1), "b": float64(3), "c": float64(4)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extracted mismatch (-want +got):\n%s", diff)
	}
}

// WHAT: generating a profile for a user without activities fails cleanly.
// WHY: an empty profile snapshot would shadow the 404 the API should serve.
func TestGenerateProfile_NoActivities(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GenerateProfile(ctx, "ghost")
	if !errors.Is(err, ErrNoActivities) {
		t.Fatalf("GenerateProfile error = %v, want ErrNoActivities", err)
	}

	p, err := svc.UserProfile(ctx, "ghost")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if p != nil {
		t.Fatalf("profile persisted despite error: %+v", p)
	}
}

func seedActivities(t *testing.T, svc *Service, userID string) {
	t.Helper()
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	fake := &fakeCollector{platform: "github", records: []collect.Raw{
		rawRecord("github", "https://github.com/"+userID, base,
			map[string]any{"type": "github_profile", "followers": 2000, "repositories_count": 50, "activity_type": "profile"}),
		rawRecord("github", "https://github.com/"+userID+"?tab=repositories", base.Add(time.Hour),
			map[string]any{"type": "github_profile", "repositories_count": 50}),
	}}
	search := &fakeCollector{platform: "search_google", records: []collect.Raw{
		rawRecord("search_google", "https://www.google.com/search?q="+userID, base.AddDate(0, 1, 0),
			map[string]any{"type": "google_search_results", "relevant_links": []any{"https://blog.example.com"}}),
	}}
	svc.collectors = map[string]collect.Collector{"github": fake}
	svc.engines = map[string]collect.Collector{"google": search}

	if _, err := svc.Crawl(context.Background(), userID, []string{"github"}, []string{"google"}, false); err != nil {
		t.Fatalf("seed crawl: %v", err)
	}
}

// WHAT: profile aggregation arithmetic over a seeded history.
// WHY: breakdown counts must sum to the total and the date range must span
// the seeded timestamps, or the dashboard numbers drift apart.
func TestGenerateProfile_Aggregates(t *testing.T) {
	ext := &fakeExtractor{}
	svc := newTestService(t, WithExtractor(ext))
	seedActivities(t, svc, "octocat")
	ctx := context.Background()

	profile, err := svc.GenerateProfile(ctx, "octocat")
	if err != nil {
		t.Fatalf("GenerateProfile: %v", err)
	}

	summary := profile["activity_summary"].(map[string]any)
	if total := summary["total_activities"].(int); total != 3 {
		t.Errorf("total_activities = %d, want 3", total)
	}
	breakdown := summary["platform_breakdown"].(map[string]int)
	sum := 0
	for _, n := range breakdown {
		sum += n
	}
	if sum != 3 {
		t.Errorf("breakdown sum = %d, want 3", sum)
	}
	if breakdown["github"] != 2 || breakdown["search_google"] != 1 {
		t.Errorf("breakdown = %v, want github:2 search_google:1", breakdown)
	}

	dateRange := summary["date_range"].(map[string]any)
	if got := dateRange["earliest_activity"].(string); got != "2026-01-05T10:00:00Z" {
		t.Errorf("earliest_activity = %s", got)
	}
	if got := dateRange["latest_activity"].(string); got != "2026-02-05T10:00:00Z" {
		t.Errorf("latest_activity = %s", got)
	}
	if got := dateRange["span_days"].(int); got != 31 {
		t.Errorf("span_days = %d, want 31", got)
	}

	if ext.summarizeCalls != 1 {
		t.Errorf("summarizeCalls = %d, want 1", ext.summarizeCalls)
	}

	// The snapshot must be persisted and decode back to the same totals.
	stored, err := svc.UserProfile(ctx, "octocat")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if stored == nil {
		t.Fatal("profile not persisted")
	}
	data := stored.Data()
	storedSummary := data["activity_summary"].(map[string]any)
	if got := storedSummary["total_activities"].(float64); got != 3 {
		t.Errorf("persisted total_activities = %v, want 3", got)
	}
}

// WHAT: timeline highlights are capped at five and sorted by significance,
// highest first, with ties keeping recency order.
// WHY: the profile page shows only the top slots; an unstable sort would make
// consecutive generations disagree.
func TestGenerateProfile_Highlights(t *testing.T) {
	svc := newTestService(t, WithExtractor(&fakeExtractor{}))
	seedActivities(t, svc, "octocat")
	ctx := context.Background()

	profile, err := svc.GenerateProfile(ctx, "octocat")
	if err != nil {
		t.Fatalf("GenerateProfile: %v", err)
	}

	highlights := profile["timeline_highlights"].([]map[string]any)
	if len(highlights) == 0 || len(highlights) > 5 {
		t.Fatalf("len(highlights) = %d, want 1..5", len(highlights))
	}
	for i := 1; i < len(highlights); i++ {
		prev := highlights[i-1]["significance"].(float64)
		cur := highlights[i]["significance"].(float64)
		if cur > prev {
			t.Errorf("highlights[%d] = %.2f > highlights[%d] = %.2f, want non-increasing", i, cur, i-1, prev)
		}
	}
	// The profile page record carries followers 2000 and repositories 50:
	// base 1.2 + capped 2.0 + capped 1.5.
	if got := highlights[0]["significance"].(float64); got < 4.69 || got > 4.71 {
		t.Errorf("top significance = %.2f, want 4.70", got)
	}
	// The highlight type comes from extracted activity_type, not the raw
	// record type field.
	if got := highlights[0]["type"].(string); got != "profile" {
		t.Errorf("top type = %s, want profile", got)
	}
}

// WHAT: the highlight window is the 10 newest activities; older records never
// qualify even when newer ones inside the window carry no extracted fields.
// WHY: highlights are a recency feature. Reaching past the window to fill
// empty slots would resurface stale activity on an active user's profile.
func TestGenerateProfile_HighlightWindow(t *testing.T) {
	svc := newTestService(t, WithExtractor(&fakeExtractor{}))
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	records := []collect.Raw{
		rawRecord("github", "https://github.com/w/old", base,
			map[string]any{"activity_type": "push"}),
	}
	for i := 1; i <= 9; i++ {
		records = append(records, rawRecord("github", fmt.Sprintf("https://github.com/w/p%d", i),
			base.Add(time.Duration(i)*time.Hour), map[string]any{"activity_type": "push"}))
	}
	// Newest record has nothing extracted and must be skipped, not replaced
	// by the out-of-window oldest one.
	records = append(records, rawRecord("github", "https://github.com/w/p10",
		base.Add(10*time.Hour), nil))

	fake := &fakeCollector{platform: "github", records: records}
	svc.collectors = map[string]collect.Collector{"github": fake}
	ctx := context.Background()
	if _, err := svc.Crawl(ctx, "windowed", []string{"github"}, []string{}, false); err != nil {
		t.Fatalf("seed crawl: %v", err)
	}

	profile, err := svc.GenerateProfile(ctx, "windowed")
	if err != nil {
		t.Fatalf("GenerateProfile: %v", err)
	}
	highlights := profile["timeline_highlights"].([]map[string]any)
	if len(highlights) != 5 {
		t.Fatalf("len(highlights) = %d, want 5", len(highlights))
	}
	// Equal scores keep recency order: p9 down to p5.
	for i, want := range []string{"p9", "p8", "p7", "p6", "p5"} {
		got := highlights[i]["title"].(string)
		if got != "page at https://github.com/w/"+want {
			t.Errorf("highlights[%d].title = %q, want .../%s", i, got, want)
		}
	}
}

// WHAT: default crawl platforms are exactly the ones with a collector.
// WHY: a default naming a catalog-only platform makes every unqualified crawl
// log a skipped-source warning.
func TestConfigDefaults(t *testing.T) {
	cfg := defaultConfig()
	want := []string{"github", "zhihu"}
	if diff := cmp.Diff(want, cfg.DefaultPlatforms); diff != "" {
		t.Errorf("DefaultPlatforms mismatch (-want +got):\n%s", diff)
	}

	svc := newTestService(t)
	for _, p := range cfg.DefaultPlatforms {
		if _, ok := svc.collectors[p]; !ok {
			t.Errorf("default platform %q has no collector", p)
		}
	}
	if len(cfg.DefaultEngines) == 0 {
		t.Error("DefaultEngines is empty")
	}
}

// WHAT: significance scoring across platform bases and metric coercions.
// WHY: extracted metrics arrive as ints from collectors, float64 from JSON,
// and digit strings from the model; all must count.
func TestSignificance(t *testing.T) {
	tests := []struct {
		name      string
		platform  string
		extracted map[string]any
		want      float64
	}{
		{"plain unknown platform", "blog", map[string]any{}, 1.0},
		{"google search base", "search_google", map[string]any{}, 0.8},
		{"zhihu base", "zhihu", map[string]any{}, 1.1},
		{"github capped metrics", "github", map[string]any{"followers": 2000, "repositories_count": 50}, 4.7},
		{"followers below cap", "github", map[string]any{"followers": float64(500)}, 1.7},
		{"string metric", "github", map[string]any{"followers": "500"}, 1.7},
		{"json number", "github", map[string]any{"repositories_count": json.Number("5")}, 1.7},
		{"garbage metric ignored", "github", map[string]any{"followers": "many"}, 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := significance(tt.platform, tt.extracted)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("significance = %v, want %v", got, tt.want)
			}
		})
	}
}

// WHAT: timeline groups activities by UTC day, newest day first.
// WHY: the API contract returns one entry per day with items ordered within
// the day, matching the raw descending timestamp order.
func TestTimeline_GroupsByDay(t *testing.T) {
	svc := newTestService(t)
	day1 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)
	fake := &fakeCollector{platform: "github", records: []collect.Raw{
		rawRecord("github", "https://github.com/u/1", day1, map[string]any{"type": "github_profile"}),
		rawRecord("github", "https://github.com/u/2", day1.Add(time.Hour), map[string]any{"type": "github_profile"}),
		rawRecord("github", "https://github.com/u/3", day2, map[string]any{"type": "github_profile"}),
	}}
	svc.collectors = map[string]collect.Collector{"github": fake}
	ctx := context.Background()
	if _, err := svc.Crawl(ctx, "octocat", []string{"github"}, []string{}, false); err != nil {
		t.Fatalf("seed crawl: %v", err)
	}

	entries, err := svc.Timeline(ctx, "octocat")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Date != "2026-04-02" || entries[1].Date != "2026-04-01" {
		t.Errorf("dates = %s, %s, want 2026-04-02, 2026-04-01", entries[0].Date, entries[1].Date)
	}
	if len(entries[0].Items) != 1 || len(entries[1].Items) != 2 {
		t.Fatalf("item counts = %d, %d, want 1, 2", len(entries[0].Items), len(entries[1].Items))
	}
	if got := entries[0].Items[0].Time; got != "18:30:00" {
		t.Errorf("time = %s, want 18:30:00", got)
	}
	if got := entries[1].Items[0].URL; got != "https://github.com/u/2" {
		t.Errorf("first item of day 1 = %s, want the later one", got)
	}
}

// WHAT: stats totals, per-platform counts, and last-activity formatting.
// WHY: the stats endpoint is the cheapest health signal on a user; an empty
// user must read as zero with no last_activity, not as an error.
func TestUserStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	empty, err := svc.UserStats(ctx, "ghost")
	if err != nil {
		t.Fatalf("UserStats(empty): %v", err)
	}
	if empty.TotalActivities != 0 || empty.LastActivity != "" {
		t.Errorf("empty stats = %+v, want zero total and no last_activity", empty)
	}

	seedActivities(t, svc, "octocat")
	stats, err := svc.UserStats(ctx, "octocat")
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if stats.TotalActivities != 3 {
		t.Errorf("TotalActivities = %d, want 3", stats.TotalActivities)
	}
	want := map[string]int{"github": 2, "search_google": 1}
	if diff := cmp.Diff(want, stats.PlatformStats); diff != "" {
		t.Errorf("PlatformStats mismatch (-want +got):\n%s", diff)
	}
	if stats.LastActivity != "2026-02-05T10:00:00Z" {
		t.Errorf("LastActivity = %s, want 2026-02-05T10:00:00Z", stats.LastActivity)
	}
}

// WHAT: full path through New's real github collector with a canned renderer.
// WHY: exercises collector wiring, per-URL extraction, and persistence
// together; each of the four github URLs with usable fields yields one row.
func TestCrawl_EndToEndGitHub(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	page := render.Func(func(ctx context.Context, pageURL string) (*render.Page, error) {
		return &render.Page{
			URL:   pageURL,
			Title: "octocat on GitHub",
			Markdown: "# The Octocat\n\n**Bio:** likes tentacles\n\n" +
				"8 repositories\n2000 followers\n9 following\n\nPushed to octocat/Hello-World\n",
		}, nil
	})
	cfg := &Config{
		Platforms: map[string]PlatformSpec{"github": {Interval: time.Millisecond}},
		Engines:   []string{},
	}
	ext := &fakeExtractor{}
	svc, err := New(db, page, cfg, slog.New(slog.DiscardHandler),
		WithIDGenerator(idgen.Sequential("act")), WithExtractor(ext))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := svc.Crawl(context.Background(), "octocat", []string{"github"}, []string{}, false)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want none", result.Errors)
	}
	if len(result.Collected) != 4 {
		t.Fatalf("collected = %d, want one per github URL", len(result.Collected))
	}
	if ext.enhanceCalls != 0 {
		t.Errorf("enhanceCalls = %d with use_llm=false, want 0", ext.enhanceCalls)
	}

	first := result.Collected[0]
	ex := first.Extracted()
	if ex["username"] != "The Octocat" || ex["bio"] != "likes tentacles" {
		t.Errorf("extracted = %v, want username and bio", ex)
	}
	if ex["followers"] != float64(2000) {
		t.Errorf("followers = %v, want 2000", ex["followers"])
	}
}

// WHAT: shallow merge helper, extra wins.
func TestMergeFields(t *testing.T) {
	got := mergeFields(map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3, "c": 4})
	want := map[string]any{"a": 1, "b": 3, "c": 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mergeFields mismatch (-want +got):\n%s", diff)
	}
}
