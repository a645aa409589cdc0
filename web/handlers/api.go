// Package handlers provides HTTP handlers and middleware for the labeld
// REST API.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/dmfarley/labeld/internal/embed"
	"github.com/dmfarley/labeld/internal/engine"
	"github.com/dmfarley/labeld/internal/storage"
)

// maxDefinitionLength caps label definitions, matching the classifier's
// assumption that definitions are short descriptive texts.
const maxDefinitionLength = 2000

// API contains the HTTP handlers for the REST API.
type API struct {
	engine   *engine.Engine
	embedder embed.Provider
	hub      *WebSocketHub
}

// NewAPI creates a new API instance. hub may be nil when event broadcasting
// is disabled.
func NewAPI(eng *engine.Engine, embedder embed.Provider, hub *WebSocketHub) *API {
	return &API{
		engine:   eng,
		embedder: embedder,
		hub:      hub,
	}
}

// Classify handles POST /api/classify.
func (a *API) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required", nil)
		return
	}
	if len(req.Label) > 120 {
		respondError(w, http.StatusBadRequest, "label exceeds 120 characters", nil)
		return
	}

	result, err := a.engine.Classify(r.Context(), req.Text, engine.LabelRef{ID: req.LabelID, Name: req.Label})
	if err != nil {
		respondEngineError(w, err)
		return
	}

	a.broadcast(Event{
		Type:    "entry_classified",
		EntryID: result.EntryID,
		Label:   result.AssignedLabel,
		Score:   result.SimilarityScore,
	})

	respondJSON(w, http.StatusOK, ClassificationResponse{
		EntryID:         result.EntryID,
		Text:            req.Text,
		AssignedLabel:   result.AssignedLabel,
		SimilarityScore: result.SimilarityScore,
		CreatedNewLabel: result.CreatedNewLabel,
		Reason:          result.Reason,
		BestMatchLabel:  result.BestMatchLabel,
		BestMatchScore:  result.BestMatchScore,
	})
}

// Health handles GET /health. It reports degraded (but still 200) when the
// embedding provider fails its reachability check.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if hc, ok := a.embedder.(embed.HealthChecker); ok {
		if err := hc.HealthCheck(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Provider = err.Error()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (a *API) broadcast(event Event) {
	if a.hub != nil {
		a.hub.Broadcast(event)
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing left to do but log.
		log.Printf("failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]any{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}

// respondEngineError maps the engine's typed failures to HTTP status codes.
// Policy errors (no fit, label in use) and not-found errors are expected
// outcomes; provider errors are surfaced as gateway-style statuses so callers
// can decide to retry.
func respondEngineError(w http.ResponseWriter, err error) {
	var noFit *engine.NoLabelFitError

	switch {
	case errors.As(err, &noFit):
		respondJSON(w, http.StatusUnprocessableEntity, NoLabelFitResponse{
			Message:        "No existing label fit this text",
			BestMatchLabel: noFit.BestMatchLabel,
			BestMatchScore: noFit.BestMatchScore,
		})
	case errors.Is(err, engine.ErrLabelNotFound):
		respondError(w, http.StatusNotFound, "label not found", err)
	case errors.Is(err, engine.ErrEntryNotFound):
		respondError(w, http.StatusNotFound, "entry not found", err)
	case errors.Is(err, engine.ErrLabelInUse):
		respondError(w, http.StatusConflict, "label has entries and cannot be deleted without force=true", err)
	case errors.Is(err, storage.ErrDuplicateName):
		respondError(w, http.StatusConflict, "label already exists", err)
	case errors.Is(err, engine.ErrEmptyLabelName):
		respondError(w, http.StatusBadRequest, "label name must not be empty", err)
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, embed.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "embedding provider unavailable", err)
	case errors.Is(err, embed.ErrBadResponse):
		respondError(w, http.StatusBadGateway, "embedding provider returned bad response", err)
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err)
	}
}
