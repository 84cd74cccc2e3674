package dossier

import "github.com/hazyhaar/empreinte/dossier/internal/render"

// Re-export the renderer surface so callers construct renderers without
// reaching into internal packages.
type (
	Renderer      = render.Renderer
	Page          = render.Page
	Browser       = render.Browser
	BrowserConfig = render.BrowserConfig
	Fetcher       = render.Fetcher
	FetcherConfig = render.FetcherConfig
)

// NewBrowserRenderer creates the headless-Chrome renderer. Call Start before
// passing it to New.
func NewBrowserRenderer(cfg BrowserConfig) *Browser {
	return render.NewBrowser(cfg)
}

// NewHTTPRenderer creates the plain-HTTP renderer. Script-rendered content is
// missed; prefer the browser renderer when Chrome is available.
func NewHTTPRenderer(cfg FetcherConfig) *Fetcher {
	return render.NewFetcher(cfg)
}
