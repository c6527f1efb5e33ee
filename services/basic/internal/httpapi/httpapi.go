// Package httpapi exposes the basic service over HTTP: the streaming
// background endpoint, the hello greeting, the talk responder, and the
// health/metrics surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"basicd/pkg/bus"
	"basicd/pkg/event"
	"basicd/services/basic/internal/batch"
)

// API wires the orchestrator, the optional event mirror, and
// configuration for the HTTP handlers.
type API struct {
	orch         *batch.Orchestrator
	bus          *bus.Bus
	log          zerolog.Logger
	maxProcesses int
	helloBuilder *event.Builder
}

// New initialises the API layer. The bus may be nil, which disables
// envelope mirroring.
func New(orch *batch.Orchestrator, b *bus.Bus, maxProcesses int, log zerolog.Logger) (*API, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if maxProcesses < 1 {
		maxProcesses = 1
	}

	return &API{
		orch:         orch,
		bus:          b,
		log:          log,
		maxProcesses: maxProcesses,
		helloBuilder: event.NewBuilder(event.SourceHello, event.SpecVersionHello),
	}, nil
}

// Routes constructs the chi router containing all endpoints.
func (a *API) Routes(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	r.Use(httprate.Limit(100, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/hello", a.handleHello)
		r.Post("/talk", a.handleTalk)
		r.Get("/background", a.handleBackground)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
