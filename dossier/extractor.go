package dossier

import (
	"context"

	"github.com/hazyhaar/empreinte/dossier/internal/llm"
)

// Re-export the extractor surface for WithExtractor callers.
type (
	Extractor       = llm.Extractor
	ActivitySummary = llm.ActivitySummary
	Gemini          = llm.Gemini
	GeminiConfig    = llm.GeminiConfig
)

// NewGeminiExtractor creates the Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	return llm.NewGemini(ctx, cfg)
}
