package dossier

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/empreinte/dossier/internal/collect"
)

// PlatformSpec describes one platform in the crawl catalog.
type PlatformSpec struct {
	// BaseURL overrides the collector's default base URL.
	BaseURL string `yaml:"base_url"`

	// Interval is the minimum time between two fetches to this platform.
	Interval time.Duration `yaml:"interval"`
}

// UnmarshalYAML accepts Go duration strings ("5s", "1500ms") for interval.
func (p *PlatformSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL  string `yaml:"base_url"`
		Interval string `yaml:"interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	p.BaseURL = raw.BaseURL
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("platform interval %q: %w", raw.Interval, err)
		}
		p.Interval = d
	}
	return nil
}

// Config configures the dossier service.
type Config struct {
	// Platforms is the crawl catalog. Entries without a collector
	// implementation (e.g. xiaohongshu) are catalog-only: they can be named
	// in requests but produce no records.
	Platforms map[string]PlatformSpec `yaml:"platforms"`

	// Engines lists the enabled search engines.
	Engines []string `yaml:"engines"`

	// DefaultPlatforms and DefaultEngines apply when a crawl request names
	// none.
	DefaultPlatforms []string `yaml:"default_platforms"`
	DefaultEngines   []string `yaml:"default_engines"`

	// MaxContentLen caps stored page content in runes. Default 2000.
	MaxContentLen int `yaml:"max_content_len"`

	// GenerateReadLimit caps how many activities profile generation and the
	// timeline read. Default 10000.
	GenerateReadLimit int `yaml:"generate_read_limit"`
}

func (c *Config) defaults() {
	if c.Platforms == nil {
		c.Platforms = map[string]PlatformSpec{
			"github":      {BaseURL: "https://github.com", Interval: time.Second},
			"zhihu":       {BaseURL: "https://www.zhihu.com", Interval: 2 * time.Second},
			"xiaohongshu": {BaseURL: "https://www.xiaohongshu.com", Interval: 3 * time.Second},
		}
	}
	if c.Engines == nil {
		c.Engines = collect.KnownEngines()
	}
	if c.DefaultPlatforms == nil {
		// Only platforms with a collector; xiaohongshu stays opt-in.
		c.DefaultPlatforms = []string{"github", "zhihu"}
	}
	if c.DefaultEngines == nil {
		c.DefaultEngines = []string{"google", "bing"}
	}
	if c.MaxContentLen <= 0 {
		c.MaxContentLen = collect.DefaultMaxContentLen
	}
	if c.GenerateReadLimit <= 0 {
		c.GenerateReadLimit = 10000
	}
}

func defaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}
