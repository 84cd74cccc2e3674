// Package collect implements per-source collectors: each turns a user handle
// into a fixed list of candidate URLs, renders them, and pattern-matches
// structured fields out of the markdown. Sources differ only in URL shape and
// field markers; the fetch loop, rate limiting, and exclusion guard are
// shared.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/empreinte/dossier/internal/render"
)

// DefaultMaxContentLen caps stored page content, in runes.
const DefaultMaxContentLen = 2000

// Raw is one collected observation before enhancement and persistence.
type Raw struct {
	Platform  string
	URL       string
	Title     string
	Content   string
	Extracted map[string]any
	Timestamp time.Time
}

// Collector turns a handle into fetched pages and structured fields for one
// source. BuildURLs and ExtractFields are pure; Collect drives both and
// returns per-URL failures explicitly so the orchestrator can aggregate them.
type Collector interface {
	Platform() string
	BuildURLs(handle string) []string
	ExtractFields(markdown, pageURL string) map[string]any
	Collect(ctx context.Context, handle string) ([]Raw, []error)
}

// excludedHandles short-circuit collection before any network activity.
// These are handles that exist on every platform and profile nobody.
var excludedHandles = map[string]struct{}{
	"abc":     {},
	"admin":   {},
	"user":    {},
	"test":    {},
	"demo":    {},
	"example": {},
}

// Excluded reports whether a handle is in the exclusion set.
func Excluded(handle string) bool {
	_, ok := excludedHandles[strings.ToLower(strings.TrimSpace(handle))]
	return ok
}

// Config configures one collector instance.
type Config struct {
	Renderer render.Renderer

	// BaseURL overrides the source's default base URL. Trailing slashes are
	// trimmed. Tests point this at a local server.
	BaseURL string

	// Interval is the minimum time between two fetches to this source.
	// Zero keeps the source default.
	Interval time.Duration

	// MaxContentLen caps stored page content in runes. Default 2000.
	MaxContentLen int

	Logger *slog.Logger

	// Now and Sleep are injectable for rate-limiter tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

func (c *Config) defaults(baseURL string, interval time.Duration) {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Interval <= 0 {
		c.Interval = interval
	}
	if c.MaxContentLen <= 0 {
		c.MaxContentLen = DefaultMaxContentLen
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}

// site carries the shared collect loop. Each collector embeds one; the
// rate-limit timestamp is per instance, so two collectors for the same
// platform wait independently.
type site struct {
	platform  string
	cfg       Config
	lastFetch time.Time
}

// wait sleeps the remainder of the inter-request interval if the previous
// fetch to this source was too recent.
func (s *site) wait() {
	if !s.lastFetch.IsZero() {
		if elapsed := s.cfg.Now().Sub(s.lastFetch); elapsed < s.cfg.Interval {
			s.cfg.Sleep(s.cfg.Interval - elapsed)
		}
	}
	s.lastFetch = s.cfg.Now()
}

// collect renders each URL and extracts fields. Per-URL failures are logged,
// returned, and never abort the batch. Pages whose extraction yields nil
// produce no record.
func (s *site) collect(ctx context.Context, handle string, urls []string, extract func(markdown, pageURL string) map[string]any) ([]Raw, []error) {
	log := s.cfg.Logger.With("platform", s.platform, "handle", handle)

	if Excluded(handle) {
		log.Info("collect: excluded handle, skipping")
		return []Raw{}, nil
	}

	var records []Raw
	var errs []error
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		s.wait()

		page, err := s.cfg.Renderer.Render(ctx, u)
		if err != nil {
			log.Warn("collect: fetch failed", "url", u, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}

		fields := extract(page.Markdown, u)
		if fields == nil {
			log.Debug("collect: too few fields, skipping", "url", u)
			continue
		}

		records = append(records, Raw{
			Platform:  s.platform,
			URL:       u,
			Title:     page.Title,
			Content:   truncate(page.Markdown, s.cfg.MaxContentLen),
			Extracted: fields,
			Timestamp: s.cfg.Now().UTC(),
		})
	}
	return records, errs
}

func (s *site) stamp() string {
	return s.cfg.Now().UTC().Format(time.RFC3339)
}

// truncate cuts s to at most n runes. Rune-based so multi-byte content
// (zhihu pages) is never split mid-character.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var reHeading = regexp.MustCompile(`# ([^\n]+)`)

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func firstInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
