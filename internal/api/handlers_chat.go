package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/memory"
	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

type ChatHandler struct {
	svc    *memory.Service
	router *llm.Router
	logger *slog.Logger
}

func NewChatHandler(svc *memory.Service, router *llm.Router, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, router: router, logger: logger}
}

// Webhook handles POST /webhook
func (h *ChatHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req models.RespondRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Respond(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Recap handles POST /recap
func (h *ChatHandler) Recap(w http.ResponseWriter, r *http.Request) {
	var req models.RecapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Recap(r.Context(), req.Owner, req.Unit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Insights handles GET /insights?unit=&days=
func (h *ChatHandler) Insights(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	resp, err := h.svc.Insights(r.Context(), r.URL.Query().Get("unit"), days)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Compare handles POST /compare
func (h *ChatHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.CompareUnits(r.Context(), req.UnitA, req.UnitB)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Route handles POST /route. Generation failures are reported inside the
// reply text, so this always answers 200 for a valid body.
func (h *ChatHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req models.RouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	writeJSON(w, http.StatusOK, models.RouteResponse{
		Route: string(h.router.Route(req.Text)),
		Reply: h.router.SelectAndGenerate(r.Context(), req.Text),
	})
}
