// Package render turns crawl target URLs into markdown text the collectors
// can pattern-match. Two implementations exist: Browser drives headless
// Chrome for script-heavy profile pages, Fetcher does a plain HTTP GET for
// environments without Chrome. Both sanitize the HTML and convert it to
// markdown through the same path.
package render

import "context"

// Page is a rendered crawl target.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// Renderer fetches and converts one URL. Implementations must be safe for
// sequential reuse; collectors call Render once per target URL.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*Page, error)
}

// Func adapts a function to the Renderer interface. Used in tests to serve
// canned markdown.
type Func func(ctx context.Context, pageURL string) (*Page, error)

func (f Func) Render(ctx context.Context, pageURL string) (*Page, error) {
	return f(ctx, pageURL)
}
