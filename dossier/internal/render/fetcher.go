package render

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/empreinte/websafe"
)

// FetcherConfig configures the plain-HTTP renderer.
type FetcherConfig struct {
	Timeout   time.Duration // HTTP timeout. Default: 30s.
	MaxBytes  int64         // Max response body size. Default: websafe.MaxResponseBody.
	UserAgent string
	// URLValidator validates URLs before fetch and on every redirect.
	// Default: websafe.ValidateURL.
	URLValidator func(string) error
}

func (c *FetcherConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = websafe.MaxResponseBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "empreinte/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = websafe.ValidateURL
	}
}

// Fetcher renders pages with a plain HTTP GET. Script-rendered content is
// missed, so the browser renderer is preferred when Chrome is available.
type Fetcher struct {
	client *http.Client
	cfg    FetcherConfig
	md     *markdowner
}

// NewFetcher creates a Fetcher with SSRF checks on redirects.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		cfg: cfg,
		md:  newMarkdowner(),
	}
}

// Render fetches pageURL and converts the response body to markdown.
func (f *Fetcher) Render(ctx context.Context, pageURL string) (*Page, error) {
	if err := f.cfg.URLValidator(pageURL); err != nil {
		return nil, fmt.Errorf("render: URL blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("render: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render: http %d for %s", resp.StatusCode, pageURL)
	}

	body, err := websafe.LimitedReadAll(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("render: read body: %w", err)
	}

	rawHTML := string(body)
	return &Page{
		URL:      pageURL,
		Title:    pageTitle(rawHTML),
		Markdown: f.md.Convert(rawHTML, pageURL),
	}, nil
}
