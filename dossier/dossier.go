package dossier

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/empreinte/dossier/internal/collect"
	"github.com/hazyhaar/empreinte/dossier/internal/llm"
	"github.com/hazyhaar/empreinte/dossier/internal/store"
	"github.com/hazyhaar/empreinte/idgen"
)

// Service orchestrates collectors, the LLM extractor, and the store.
type Service struct {
	store      *store.Store
	extractor  llm.Extractor
	logger     *slog.Logger
	config     *Config
	newID      func() string
	collectors map[string]collect.Collector // platform name → collector
	engines    map[string]collect.Collector // engine name → search collector
}

// New creates a dossier Service on an already-opened database (the caller
// applies Schema via dbopen) and a page renderer (NewBrowserRenderer or
// NewHTTPRenderer).
func New(db *sql.DB, renderer Renderer, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if renderer == nil {
		return nil, fmt.Errorf("dossier: renderer is required")
	}
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:      store.NewStore(db),
		extractor:  llm.Disabled{},
		logger:     logger,
		config:     cfg,
		newID:      idgen.New,
		collectors: make(map[string]collect.Collector),
		engines:    make(map[string]collect.Collector),
	}

	for name, spec := range cfg.Platforms {
		ccfg := collect.Config{
			Renderer:      renderer,
			BaseURL:       spec.BaseURL,
			Interval:      spec.Interval,
			MaxContentLen: cfg.MaxContentLen,
			Logger:        logger,
		}
		switch name {
		case "github":
			svc.collectors[name] = collect.NewGitHub(ccfg)
		case "zhihu":
			svc.collectors[name] = collect.NewZhihu(ccfg)
		default:
			// Catalog-only platform: accepted in requests, yields nothing.
			logger.Debug("dossier: platform has no collector", "platform", name)
		}
	}

	for _, engine := range cfg.Engines {
		sc, err := collect.NewSearch(engine, collect.Config{
			Renderer:      renderer,
			MaxContentLen: cfg.MaxContentLen,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		svc.engines[engine] = sc
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithExtractor sets the LLM extractor (see NewGeminiExtractor). Default:
// llm disabled, crawls with use_llm still succeed but records carry an
// error-marked enhancement.
func WithExtractor(e Extractor) ServiceOption {
	return func(svc *Service) {
		if e != nil {
			svc.extractor = e
		}
	}
}

// WithIDGenerator overrides the activity ID generator. Tests use
// idgen.Sequential for deterministic IDs.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(svc *Service) {
		if gen != nil {
			svc.newID = gen
		}
	}
}
