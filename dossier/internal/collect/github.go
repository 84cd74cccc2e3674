package collect

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// GitHub collects the public profile page and its repositories, followers,
// and following tabs.
type GitHub struct {
	site
}

const (
	githubBaseURL  = "https://github.com"
	githubInterval = time.Second
)

var (
	reGithubBio       = regexp.MustCompile(`\*\*Bio:\*\*\s*([^\n]+)`)
	reGithubRepos     = regexp.MustCompile(`(?i)(\d+)\s*repositories`)
	reGithubFollowers = regexp.MustCompile(`(?i)(\d+)\s*followers`)
	reGithubFollowing = regexp.MustCompile(`(?i)(\d+)\s*following`)
	reGithubActivity  = regexp.MustCompile(`(Created|Updated|Pushed to)\s+([^\n]+)`)
)

// NewGitHub creates the github collector.
func NewGitHub(cfg Config) *GitHub {
	cfg.defaults(githubBaseURL, githubInterval)
	return &GitHub{site: site{platform: "github", cfg: cfg}}
}

func (g *GitHub) Platform() string { return "github" }

// BuildURLs returns the profile page plus its three tabs, in a fixed order.
func (g *GitHub) BuildURLs(handle string) []string {
	profile := g.cfg.BaseURL + "/" + handle
	return []string{
		profile,
		profile + "?tab=repositories",
		profile + "?tab=followers",
		profile + "?tab=following",
	}
}

// ExtractFields pattern-matches profile fields out of rendered markdown.
// Returns nil when only the type and timestamp markers would remain, so
// empty pages produce no record.
func (g *GitHub) ExtractFields(markdown, pageURL string) map[string]any {
	info := map[string]any{
		"type":      "github_profile",
		"timestamp": g.stamp(),
	}

	if v := firstMatch(reHeading, markdown); v != "" {
		info["username"] = v
	}
	if v := firstMatch(reGithubBio, markdown); v != "" {
		info["bio"] = v
	}
	if n, ok := firstInt(reGithubRepos, markdown); ok {
		info["repositories_count"] = n
	}
	if n, ok := firstInt(reGithubFollowers, markdown); ok {
		info["followers"] = n
	}
	if n, ok := firstInt(reGithubFollowing, markdown); ok {
		info["following"] = n
	}
	if acts := reGithubActivity.FindAllStringSubmatch(markdown, 5); len(acts) > 0 {
		items := make([]string, 0, len(acts))
		for _, m := range acts {
			items = append(items, m[1]+" "+strings.TrimSpace(m[2]))
		}
		info["recent_activities"] = items
	}

	if len(info) <= 2 {
		return nil
	}
	return info
}

// Collect drives BuildURLs and ExtractFields through the shared loop.
func (g *GitHub) Collect(ctx context.Context, handle string) ([]Raw, []error) {
	return g.collect(ctx, handle, g.BuildURLs(handle), g.ExtractFields)
}
