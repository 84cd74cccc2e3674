package dossier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/empreinte/dossier/internal/collect"
	"github.com/hazyhaar/empreinte/dossier/internal/store"
)

// Crawl collects activity for a handle across the requested platforms and
// search engines, in the caller-supplied order. Nil platform/engine slices
// fall back to the configured defaults; unknown names are skipped. Per-source
// failures land in CrawlResult.Errors and never abort the remaining sources.
func (s *Service) Crawl(ctx context.Context, handle string, platforms, engines []string, useLLM bool) (*CrawlResult, error) {
	handle = strings.TrimSpace(handle)
	if len([]rune(handle)) < 2 {
		return nil, fmt.Errorf("%w: handle must be at least 2 characters", ErrInvalidInput)
	}
	if platforms == nil {
		platforms = s.config.DefaultPlatforms
	}
	if engines == nil {
		engines = s.config.DefaultEngines
	}

	log := s.logger.With("handle", handle)
	log.Info("dossier: crawl started",
		"platforms", platforms, "engines", engines, "use_llm", useLLM)

	result := &CrawlResult{UserID: handle, StartedAt: time.Now().UTC()}

	for _, platform := range platforms {
		c, ok := s.collectors[platform]
		if !ok {
			log.Warn("dossier: no collector for platform, skipping", "platform", platform)
			continue
		}
		s.runCollector(ctx, c, handle, useLLM, result, "crawling "+platform)
	}

	for _, engine := range engines {
		c, ok := s.engines[engine]
		if !ok {
			log.Warn("dossier: unknown search engine, skipping", "engine", engine)
			continue
		}
		s.runCollector(ctx, c, handle, useLLM, result, "searching "+engine)
	}

	log.Info("dossier: crawl finished",
		"collected", len(result.Collected), "errors", len(result.Errors))
	return result, nil
}

func (s *Service) runCollector(ctx context.Context, c collect.Collector, handle string, useLLM bool, result *CrawlResult, label string) {
	records, errs := c.Collect(ctx, handle)
	for _, err := range errs {
		result.Errors = append(result.Errors, fmt.Sprintf("error %s: %v", label, err))
	}
	for i := range records {
		activity, err := s.persist(ctx, handle, &records[i], useLLM)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("error %s: store: %v", label, err))
			continue
		}
		result.Collected = append(result.Collected, activity)
	}
}

// persist optionally enhances a record's fields through the LLM and writes
// it. The enhancement map wins on key collision with collector fields.
func (s *Service) persist(ctx context.Context, handle string, raw *collect.Raw, useLLM bool) (*store.Activity, error) {
	fields := raw.Extracted
	if useLLM && strings.TrimSpace(raw.Content) != "" {
		enhanced := s.extractor.Enhance(ctx, raw.Content, raw.Platform, raw.URL)
		fields = mergeFields(fields, enhanced)
	}

	activity := &store.Activity{
		ID:        s.newID(),
		UserID:    handle,
		Platform:  raw.Platform,
		URL:       raw.URL,
		Title:     raw.Title,
		Content:   raw.Content,
		Timestamp: raw.Timestamp.UnixMilli(),
	}
	if err := activity.SetExtracted(fields); err != nil {
		return nil, fmt.Errorf("encode extracted fields: %w", err)
	}
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// mergeFields shallow-merges extra over base.
func mergeFields(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
