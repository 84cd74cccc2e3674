package collect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Search collects web search result pages for a handle. One instance per
// engine; the platform name is "search_<engine>" so search-derived records
// stay distinguishable from platform profiles in the store.
type Search struct {
	site
	engine string
}

const searchInterval = 2 * time.Second

// engineBases maps known engines to their query URL prefixes.
var engineBases = map[string]string{
	"google": "https://www.google.com/search?q=",
	"bing":   "https://www.bing.com/search?q=",
	"baidu":  "https://www.baidu.com/s?wd=",
}

// KnownEngines returns the supported search engine names, stable order.
func KnownEngines() []string {
	return []string{"google", "bing", "baidu"}
}

// relevantDomains filter search result links down to profile-bearing targets.
// The last two are keyword matches, not domains.
var relevantDomains = []string{
	"github.com",
	"zhihu.com",
	"xiaohongshu.com",
	"blog",
	"portfolio",
}

var (
	reMarkdownLink = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	reBareURL      = regexp.MustCompile(`https?://[^\s)\]]+`)
	reSnippet      = regexp.MustCompile(`>\s*([^<\n]{50,200})`)
)

// NewSearch creates a collector for one engine. Unknown engines error.
func NewSearch(engine string, cfg Config) (*Search, error) {
	base, ok := engineBases[engine]
	if !ok {
		return nil, fmt.Errorf("collect: unknown search engine %q", engine)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = base
	}
	cfg.defaults(base, searchInterval)
	return &Search{
		site:   site{platform: "search_" + engine, cfg: cfg},
		engine: engine,
	}, nil
}

func (s *Search) Platform() string { return "search_" + s.engine }

// BuildURLs returns five queries: three site-scoped lookups for the known
// platforms plus blog and portfolio keyword searches.
func (s *Search) BuildURLs(handle string) []string {
	queries := []string{
		`"` + handle + `" site:github.com`,
		`"` + handle + `" site:zhihu.com`,
		`"` + handle + `" site:xiaohongshu.com`,
		handle + ` blog`,
		handle + ` portfolio`,
	}
	urls := make([]string, 0, len(queries))
	for _, q := range queries {
		urls = append(urls, s.cfg.BaseURL+strings.ReplaceAll(q, " ", "+"))
	}
	return urls
}

// ExtractFields pulls result links and text snippets out of the rendered
// results page. Returns nil when neither is present: a results page with no
// relevant links and no snippets says nothing about the user.
func (s *Search) ExtractFields(markdown, pageURL string) map[string]any {
	const (
		maxLinks    = 10
		maxSnippets = 5
	)

	var links []map[string]any
	seen := make(map[string]struct{})

	for _, m := range reMarkdownLink.FindAllStringSubmatch(markdown, -1) {
		if len(links) >= maxLinks {
			break
		}
		title, u := strings.TrimSpace(m[1]), m[2]
		if !relevantURL(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		links = append(links, map[string]any{"title": title, "url": u})
	}

	// Bare URLs outside markdown links, title falls back to the URL itself.
	for _, u := range reBareURL.FindAllString(markdown, -1) {
		if len(links) >= maxLinks {
			break
		}
		if !relevantURL(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		links = append(links, map[string]any{"title": u, "url": u})
	}

	var snippets []string
	for _, m := range reSnippet.FindAllStringSubmatch(markdown, maxSnippets) {
		snippets = append(snippets, strings.TrimSpace(m[1]))
	}

	if len(links) == 0 && len(snippets) == 0 {
		return nil
	}

	info := map[string]any{
		"type":       s.engine + "_search_results",
		"timestamp":  s.stamp(),
		"search_url": pageURL,
	}
	if len(links) > 0 {
		info["relevant_links"] = links
	}
	if len(snippets) > 0 {
		info["snippets"] = snippets
	}
	return info
}

// Collect drives BuildURLs and ExtractFields through the shared loop.
func (s *Search) Collect(ctx context.Context, handle string) ([]Raw, []error) {
	return s.collect(ctx, handle, s.BuildURLs(handle), s.ExtractFields)
}

func relevantURL(u string) bool {
	lower := strings.ToLower(u)
	for _, d := range relevantDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
