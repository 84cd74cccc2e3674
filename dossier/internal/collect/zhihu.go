package collect

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Zhihu collects a zhihu people page and its answers and articles tabs.
// Markers come in a Chinese and an English variant depending on the locale
// the page rendered with; the Chinese one is tried first.
type Zhihu struct {
	site
}

const (
	zhihuBaseURL  = "https://www.zhihu.com"
	zhihuInterval = 2 * time.Second
)

var (
	reZhihuDescZH      = regexp.MustCompile(`\*\*个人简介:\*\*\s*([^\n]+)`)
	reZhihuDescEN      = regexp.MustCompile(`\*\*Headline:\*\*\s*([^\n]+)`)
	reZhihuFollowersZH = regexp.MustCompile(`(\d+)\s*关注者`)
	reZhihuFollowersEN = regexp.MustCompile(`(?i)(\d+)\s*followers`)
	reZhihuAnswersZH   = regexp.MustCompile(`(\d+)\s*个回答`)
	reZhihuAnswersEN   = regexp.MustCompile(`(?i)(\d+)\s*answers`)
	reZhihuArticlesZH  = regexp.MustCompile(`(\d+)\s*篇文章`)
	reZhihuArticlesEN  = regexp.MustCompile(`(?i)(\d+)\s*articles`)
	reZhihuPost        = regexp.MustCompile(`## ([^\n]+)`)
)

// NewZhihu creates the zhihu collector.
func NewZhihu(cfg Config) *Zhihu {
	cfg.defaults(zhihuBaseURL, zhihuInterval)
	return &Zhihu{site: site{platform: "zhihu", cfg: cfg}}
}

func (z *Zhihu) Platform() string { return "zhihu" }

// BuildURLs returns the people page plus answers and articles, in a fixed order.
func (z *Zhihu) BuildURLs(handle string) []string {
	people := z.cfg.BaseURL + "/people/" + handle
	return []string{
		people,
		people + "/answers",
		people + "/articles",
	}
}

// ExtractFields pattern-matches profile fields out of rendered markdown,
// nil when only type and timestamp would remain.
func (z *Zhihu) ExtractFields(markdown, pageURL string) map[string]any {
	info := map[string]any{
		"type":      "zhihu_profile",
		"timestamp": z.stamp(),
	}

	if v := firstMatch(reHeading, markdown); v != "" {
		info["display_name"] = v
	}
	if v := firstMatch(reZhihuDescZH, markdown); v != "" {
		info["description"] = v
	} else if v := firstMatch(reZhihuDescEN, markdown); v != "" {
		info["description"] = v
	}
	if n, ok := firstInt(reZhihuFollowersZH, markdown); ok {
		info["followers"] = n
	} else if n, ok := firstInt(reZhihuFollowersEN, markdown); ok {
		info["followers"] = n
	}
	if n, ok := firstInt(reZhihuAnswersZH, markdown); ok {
		info["answers_count"] = n
	} else if n, ok := firstInt(reZhihuAnswersEN, markdown); ok {
		info["answers_count"] = n
	}
	if n, ok := firstInt(reZhihuArticlesZH, markdown); ok {
		info["articles_count"] = n
	} else if n, ok := firstInt(reZhihuArticlesEN, markdown); ok {
		info["articles_count"] = n
	}
	if posts := reZhihuPost.FindAllStringSubmatch(markdown, 5); len(posts) > 0 {
		items := make([]string, 0, len(posts))
		for _, m := range posts {
			items = append(items, strings.TrimSpace(m[1]))
		}
		info["recent_posts"] = items
	}

	if len(info) <= 2 {
		return nil
	}
	return info
}

// Collect drives BuildURLs and ExtractFields through the shared loop.
func (z *Zhihu) Collect(ctx context.Context, handle string) ([]Raw, []error) {
	return z.collect(ctx, handle, z.BuildURLs(handle), z.ExtractFields)
}
