package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestCORS_AllowedOrigin(t *testing.T) {
	// WHAT: browser origins on the allow list get CORS headers, others don't.
	// WHY: the dashboard runs on localhost:3000; anything else stays blocked.
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", got)
	}

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for unknown origin, want empty", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	// WHAT: OPTIONS requests short-circuit with 204.
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Post("/api/crawl", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight reached the handler")
	})

	req := httptest.NewRequest("OPTIONS", "/api/crawl", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 204 {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestLoadConfig(t *testing.T) {
	// WHAT: YAML catalog file round trip plus the empty-path default.
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\"): %v", err)
	}
	if cfg == nil {
		t.Fatal("loadConfig(\"\") = nil config")
	}

	path := filepath.Join(t.TempDir(), "platforms.yaml")
	yamlBody := `platforms:
  github:
    base_url: https://github.example
    interval: 5s
engines: [google]
max_content_len: 500
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	spec, ok := cfg.Platforms["github"]
	if !ok {
		t.Fatal("github platform missing from parsed catalog")
	}
	if spec.BaseURL != "https://github.example" || spec.Interval != 5*time.Second {
		t.Errorf("parsed spec = %+v", spec)
	}
	if len(cfg.Engines) != 1 || cfg.Engines[0] != "google" {
		t.Errorf("engines = %v, want [google]", cfg.Engines)
	}
	if cfg.MaxContentLen != 500 {
		t.Errorf("max_content_len = %d, want 500", cfg.MaxContentLen)
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/x?limit=25&bad=abc", nil)
	if got := queryInt(req, "limit", 10); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
	if got := queryInt(req, "bad", 10); got != 10 {
		t.Errorf("bad = %d, want default 10", got)
	}
	if got := queryInt(req, "missing", 10); got != 10 {
		t.Errorf("missing = %d, want default 10", got)
	}
}
