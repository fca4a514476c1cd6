package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything the health check can probe, e.g. the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the health-check endpoint.
type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthEnvelope struct {
	Status string            `json:"status"`
	Time   time.Time         `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	env := healthEnvelope{Status: "ok", Time: time.Now().UTC()}
	status := http.StatusOK
	if len(h.deps) > 0 {
		env.Checks = make(map[string]string, len(h.deps))
	}
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			zap.L().Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			env.Checks[name] = "down"
			env.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		env.Checks[name] = "up"
	}
	writeJSON(w, status, env)
}
