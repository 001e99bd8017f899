package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meridian-ai/ragcore/internal/handler"
	"github.com/meridian-ai/ragcore/internal/middleware"
)

// Dependencies holds the collaborators the router wires into handlers
// (spec.md §6.2 exposed interfaces, reachable over HTTP for non-Go
// callers).
type Dependencies struct {
	DB          handler.DBPinger
	Version     string
	FrontendURL string

	Metrics    *middleware.Metrics
	MetricsReg *prometheus.Registry

	InternalAuthSecret string
	AdminMigrateDeps   handler.AdminMigrateDeps

	AnswerDeps handler.AnswerDeps
	ThreadDeps handler.ThreadDeps

	AnswerRateLimiter *middleware.RateLimiter
}

// internalAuthOnly wraps a handler with a simple internal auth check, used
// for admin endpoints with no end-user identity.
func internalAuthOnly(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Internal-Auth")
		if secret == "" || token != secret {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	}
}

// New creates and configures the Chi router exposing the Answer and
// thread-tracker operations (spec.md §6.2).
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/api/health", handler.Health(deps.DB, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	r.Post("/api/admin/migrate", internalAuthOnly(deps.InternalAuthSecret,
		handler.AdminMigrate(deps.AdminMigrateDeps)))

	r.Group(func(r chi.Router) {
		answer := handler.Answer(deps.AnswerDeps)
		if deps.AnswerRateLimiter != nil {
			answer = withRateLimit(deps.AnswerRateLimiter, answer)
		}
		r.With(middleware.Timeout(10 * time.Minute)).Post("/api/answer", answer)

		r.Get("/api/threads", handler.ListThreads(deps.ThreadDeps))
		r.Get("/api/threads/{id}", handler.GetThread(deps.ThreadDeps))
		r.Patch("/api/threads/{id}/archive", handler.ArchiveThread(deps.ThreadDeps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "route not found",
		})
	})

	return r
}

func withRateLimit(rl *middleware.RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	wrapped := middleware.RateLimit(rl)(next)
	return wrapped.ServeHTTP
}
