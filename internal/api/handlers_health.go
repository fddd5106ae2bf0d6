package api

import (
	"context"
	"net/http"
	"time"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// MemoryCounter reports how many memories are stored.
type MemoryCounter interface {
	MemoryCount(ctx context.Context) (int, error)
}

type HealthHandler struct {
	db     MemoryCounter
	ollama Pinger
}

func NewHealthHandler(db MemoryCounter, ollama Pinger) *HealthHandler {
	return &HealthHandler{db: db, ollama: ollama}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := models.HealthResponse{
		Status: "ok",
	}

	// Check Ollama
	if err := h.ollama.HealthCheck(ctx); err != nil {
		resp.Ollama = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Ollama = models.ServiceCheck{Status: "ok"}
	}

	count, err := h.db.MemoryCount(ctx)
	if err != nil {
		resp.DB = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.DB = models.ServiceCheck{Status: "ok"}
		resp.MemoryCount = count
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
