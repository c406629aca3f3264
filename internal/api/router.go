package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/page"
	"github.com/mdnooraj/folio/internal/profile"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Profile *profile.Store
	Page    *page.Renderer
	Contact *contact.Service
	Inbox   InboxStore
	// Assistant serves the widget websocket, normally a *live.Hub.
	Assistant http.Handler
	// AdminToken guards the inbox API. Empty disables it.
	AdminToken string
	// RateLimit is contact submissions per client per minute. Zero disables limiting.
	RateLimit int
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// NewRouter returns the site handler: page, assets, profile JSON, contact
// capture, the assistant websocket and the token-guarded inbox API.
func NewRouter(deps Deps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/", handleIndex(deps))
	r.Handle("/static/*", http.StripPrefix("/static/", page.Static()))
	r.Get("/api/profile", handleProfile(deps))

	limiter := newRateLimiter(deps.RateLimit, deps.Clock)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/contact", handleContactForm(deps))
		r.Post("/api/contact", handleContactJSON(deps))
	})

	if deps.Assistant != nil {
		r.Get("/ws/assistant", deps.Assistant.ServeHTTP)
	}

	r.Route("/api/inbox", func(r chi.Router) {
		r.Use(BearerAuth(deps.AdminToken))
		r.Get("/", handleListInbox(deps))
		r.Get("/{id}", handleGetInbox(deps))
		r.Delete("/{id}", handleDeleteInbox(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := page.View{Year: deps.Clock.Now().Year()}
		if name := r.URL.Query().Get("thanks"); name != "" {
			v.Notice = contact.Acknowledge(name)
		}
		renderPage(w, deps, http.StatusOK, v)
	}
}

func renderPage(w http.ResponseWriter, deps Deps, code int, v page.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := deps.Page.Render(w, v); err != nil {
		deps.Logger.Error("rendering page failed", "error", err)
	}
}

func handleProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Profile.Record())
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
