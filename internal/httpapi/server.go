package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
	"llmeval/internal/evaluator"
)

// Service defines the methods required by the HTTP API layer.
// *evaluator.Evaluator implements it.
type Service interface {
	Models() []catalog.Configuration
	Snapshot() evaluator.Snapshot
	Select(id string) error
	Load(ctx context.Context) (*engine.Container, error)
	Generate(ctx context.Context, prompt string, opts ...evaluator.GenerateOption) (evaluator.Session, error)
	Memory() engine.MemoryStats
}

// EventSource feeds the websocket event stream. *evaluator.Broadcaster implements it.
type EventSource interface {
	Subscribe(buf int) (<-chan evaluator.Event, func())
}

// NewMux builds the router. events may be nil, in which case /ws answers 503.
func NewMux(svc Service, events EventSource) http.Handler {
	h := &handlers{svc: svc, events: events}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints only; NDJSON and websocket pass through.
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", h.models)
	r.Post("/select", h.selectModel)
	r.Post("/load", h.load)
	r.Post("/generate", h.generate)
	r.Get("/output", h.output)
	r.Get("/status", h.status)
	r.Get("/ws", h.ws)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		phase := svc.Snapshot().Phase
		if phase == evaluator.PhaseLoaded {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(phase))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc    Service
	events EventSource
}
