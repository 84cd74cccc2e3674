package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/empreinte/dbopen"
	"github.com/hazyhaar/empreinte/dossier"
	"github.com/hazyhaar/empreinte/websafe"
)

func main() {
	port := env("PORT", "8000")
	dbPath := env("DB_PATH", "data/empreinte.db")
	logLevel := env("LOG_LEVEL", "info")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	browserURL := os.Getenv("BROWSER_URL")
	rendererKind := os.Getenv("RENDERER")
	platformsFile := os.Getenv("PLATFORMS_FILE")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Crawl catalog, optionally overridden from a YAML file.
	cfg, err := loadConfig(platformsFile)
	if err != nil {
		slog.Error("load config", "file", platformsFile, "error", err)
		os.Exit(1)
	}

	// Database.
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(dossier.Schema))
	if err != nil {
		slog.Error("open db", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Renderer: headless Chrome when BROWSER_URL points at a remote instance
	// or RENDERER=browser asks for a local launch; plain HTTP otherwise, and
	// as a fallback when no Chrome can be reached.
	var renderer dossier.Renderer
	if browserURL != "" || rendererKind == "browser" {
		browser := dossier.NewBrowserRenderer(dossier.BrowserConfig{
			RemoteURL:    browserURL,
			URLValidator: websafe.ValidateURL,
			Logger:       logger,
		})
		if err := browser.Start(ctx); err != nil {
			slog.Warn("browser unavailable, falling back to http renderer", "error", err)
		} else {
			defer browser.Close()
			renderer = browser
		}
	}
	if renderer == nil {
		renderer = dossier.NewHTTPRenderer(dossier.FetcherConfig{URLValidator: websafe.ValidateURL})
	}

	// Service options.
	var opts []dossier.ServiceOption
	if geminiKey != "" {
		extractor, err := dossier.NewGeminiExtractor(ctx, dossier.GeminiConfig{APIKey: geminiKey, Logger: logger})
		if err != nil {
			slog.Error("gemini client", "error", err)
			os.Exit(1)
		}
		opts = append(opts, dossier.WithExtractor(extractor))
	} else {
		slog.Info("GEMINI_API_KEY not set, llm enhancement disabled")
	}

	svc, err := dossier.New(db, renderer, cfg, logger, opts...)
	if err != nil {
		slog.Error("dossier service", "error", err)
		os.Exit(1)
	}

	// Router.
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/crawl", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			UserID        string   `json:"user_id"`
			Platforms     []string `json:"platforms"`
			SearchEngines []string `json:"search_engines"`
			UseLLM        bool     `json:"use_llm"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		if len([]rune(body.UserID)) < 2 {
			writeError(w, 400, fmt.Errorf("user_id must be at least 2 characters"))
			return
		}

		// The crawl outlives the request: detach from the request context but
		// stay bound to the server lifetime.
		go func() {
			crawlCtx, crawlCancel := context.WithTimeout(ctx, 10*time.Minute)
			defer crawlCancel()
			result, err := svc.Crawl(crawlCtx, body.UserID, body.Platforms, body.SearchEngines, body.UseLLM)
			if err != nil {
				slog.Error("background crawl", "user_id", body.UserID, "error", err)
				return
			}
			slog.Info("background crawl done", "user_id", body.UserID,
				"collected", len(result.Collected), "errors", len(result.Errors))
		}()

		writeJSON(w, 202, map[string]any{
			"status":  "accepted",
			"user_id": body.UserID,
			"message": "crawl started in background",
		})
	})

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/activities", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			platform := req.URL.Query().Get("platform")
			limit := queryInt(req, "limit", 0)
			activities, err := svc.Activities(req.Context(), userID, platform, limit)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			out := make([]map[string]any, 0, len(activities))
			for _, a := range activities {
				out = append(out, activityJSON(a))
			}
			writeJSON(w, 200, map[string]any{"user_id": userID, "count": len(out), "activities": out})
		})

		r.Get("/timeline", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			entries, err := svc.Timeline(req.Context(), userID)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if entries == nil {
				entries = []dossier.TimelineEntry{}
			}
			writeJSON(w, 200, map[string]any{"user_id": userID, "timeline": entries})
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			stats, err := svc.UserStats(req.Context(), userID)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, stats)
		})

		r.Get("/profile", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			profile, err := svc.UserProfile(req.Context(), userID)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if profile == nil {
				writeError(w, 404, fmt.Errorf("no profile for %s, generate one first", userID))
				return
			}
			writeJSON(w, 200, map[string]any{
				"user_id":      profile.UserID,
				"profile":      profile.Data(),
				"last_updated": time.UnixMilli(profile.LastUpdated).UTC().Format(time.RFC3339),
			})
		})

		r.Post("/profile/generate", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			profile, err := svc.GenerateProfile(req.Context(), userID)
			if err != nil {
				if errors.Is(err, dossier.ErrNoActivities) {
					writeError(w, 404, err)
					return
				}
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]any{"user_id": userID, "profile": profile})
		})
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// loadConfig reads the crawl catalog from a YAML file, defaults when the path
// is empty.
func loadConfig(path string) (*dossier.Config, error) {
	cfg := &dossier.Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// activityJSON is the wire shape of one activity record.
func activityJSON(a *dossier.Activity) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"user_id":        a.UserID,
		"platform":       a.Platform,
		"url":            a.URL,
		"title":          a.Title,
		"content":        a.Content,
		"extracted_data": a.Extracted(),
		"timestamp":      time.UnixMilli(a.Timestamp).UTC().Format(time.RFC3339),
		"created_at":     time.UnixMilli(a.CreatedAt).UTC().Format(time.RFC3339),
	}
}

// --- Middleware ---

var allowedOrigins = map[string]struct{}{
	"http://localhost:3000": {},
	"http://localhost:8080": {},
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowedOrigins[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
