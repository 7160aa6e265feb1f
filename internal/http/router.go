package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/example/maintenance-scheduler/internal/metrics"
)

// RouterConfig collects the handlers and cross-cutting concerns of the API.
type RouterConfig struct {
	Schedules   *ScheduleHandler
	Calendar    *CalendarHandler
	Health      func(ctx context.Context) error
	Metrics     http.Handler
	MetricsPath string
	MetricsSink metrics.Sink
	CORSOrigins []string
	Logger      *slog.Logger
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", UserIDHeader, middleware.RequestIDHeader},
			ExposedHeaders: []string{"Location"},
			MaxAge:         300,
		}))
	}
	r.Use(RecordMetrics(cfg.MetricsSink))
	r.Use(IdentifyCaller)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", healthHandler(cfg.Health, newResponder(cfg.Logger)))
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.Schedules != nil {
			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", cfg.Schedules.List)
				r.Post("/", cfg.Schedules.Create)
				r.Get("/{id}", cfg.Schedules.Get)
				r.Patch("/{id}", cfg.Schedules.Update)
				r.Delete("/{id}", cfg.Schedules.Delete)
				r.Post("/{id}/complete", cfg.Schedules.Complete)
				r.Post("/{id}/reproject", cfg.Schedules.Reproject)
				r.Get("/{id}/preview", cfg.Schedules.Preview)
			})
			r.Get("/statistics", cfg.Schedules.Statistics)
		}
		if cfg.Calendar != nil {
			r.Get("/calendar", cfg.Calendar.Events)
		}
	})
	if cfg.Calendar != nil {
		r.Get("/calendar.ics", cfg.Calendar.ICS)
	}

	return r
}

func healthHandler(check func(ctx context.Context) error, resp responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				resp.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		resp.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
