// internal/server/router.go
//
// Build daemon routes.
//
// Context
// -------
// `xtbuild serve` keeps one process warm for CI agents that trigger builds
// over HTTP.  Routes:
//
//	POST /build    – JSON Options in, {"message": …} or {"error": …} out.
//	GET  /metrics  – Prometheus exposition.
//	GET  /healthz  – liveness, reports whether a build is running.
//
// Builds share databases and the node_modules tree, so only one runs at a
// time.  A request that arrives while another build is in flight gets 409.
//
// The configuration file is fixed when the daemon starts.  Requests that
// name their own `config` are rejected with 400.
//
// Status mapping
// --------------
//	usage error      → 400
//	config error     → 500
//	collaborator err → 502
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/build"
	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/planner"
)

// Builder runs one build.  *build.Builder satisfies it.
type Builder interface {
	Build(ctx context.Context, opts buildspec.Options) (string, error)
}

type handler struct {
	b      Builder
	config string
	log    *zap.SugaredLogger
	mu     sync.Mutex
}

type response struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Running bool   `json:"running,omitempty"`
}

const msgConfigNotAllowed = "config cannot be set per request"

// Router returns the daemon's chi router.  Every build loads the
// configuration at configPath; empty means the default location.
func Router(b Builder, configPath string, log *zap.SugaredLogger) http.Handler {
	h := &handler{b: b, config: configPath, log: logger.Or(log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/build", h.build)
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (h *handler) build(w http.ResponseWriter, r *http.Request) {
	var opts buildspec.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "invalid JSON: " + err.Error()})
		return
	}
	if opts.Config != "" {
		writeJSON(w, http.StatusBadRequest, response{Error: msgConfigNotAllowed})
		return
	}
	opts.Config = h.config

	if !h.mu.TryLock() {
		writeJSON(w, http.StatusConflict, response{Error: "a build is already running", Running: true})
		return
	}
	defer h.mu.Unlock()

	reqID := middleware.GetReqID(r.Context())
	h.log.Infow("build requested", "req_id", reqID, "database", opts.Database, "extension", opts.Extension)

	ctx, cancel := context.WithTimeout(r.Context(), BuildTimeout)
	defer cancel()

	msg, err := h.b.Build(ctx, opts)
	if err != nil {
		h.log.Errorw("build failed", "req_id", reqID, "err", err)
		writeJSON(w, statusFor(err), response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Message: msg})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	running := !h.mu.TryLock()
	if !running {
		h.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, response{Message: "ok", Running: running})
}

func statusFor(err error) int {
	switch {
	case planner.IsUsage(err):
		return http.StatusBadRequest
	case errors.Is(err, build.ErrConfig):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
