package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ListLabels handles GET /api/labels.
func (a *API) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := a.engine.ListLabels(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	resp := make([]LabelResponse, 0, len(labels))
	for _, label := range labels {
		resp = append(resp, LabelResponse{
			Name:       label.Name,
			Definition: label.Definition,
			UsageCount: label.UsageCount,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetLabel handles GET /api/labels/{name}.
func (a *API) GetLabel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "label name is required", nil)
		return
	}

	detail, err := a.engine.GetLabel(r.Context(), name)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LabelDetailResponse{
		Name:       detail.Name,
		Definition: detail.Definition,
		UsageCount: detail.UsageCount,
		Examples:   detail.Examples,
	})
}

// CreateLabel handles POST /api/labels.
func (a *API) CreateLabel(w http.ResponseWriter, r *http.Request) {
	var req CreateLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if len(req.Name) > 120 {
		respondError(w, http.StatusBadRequest, "name exceeds 120 characters", nil)
		return
	}
	if strings.TrimSpace(req.Definition) == "" {
		respondError(w, http.StatusBadRequest, "definition is required", nil)
		return
	}
	if len(req.Definition) > maxDefinitionLength {
		respondError(w, http.StatusBadRequest, "definition exceeds 2000 characters", nil)
		return
	}

	label, err := a.engine.CreateLabel(r.Context(), req.Name, req.Definition)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	a.broadcast(Event{Type: "label_created", Label: label.Name})

	respondJSON(w, http.StatusOK, CreateLabelResponse{Created: true, Name: label.Name})
}

// DeleteLabel handles DELETE /api/labels/{name}. The force query parameter
// overrides the label-in-use guard and detaches all member entries.
func (a *API) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "label name is required", nil)
		return
	}

	force := r.URL.Query().Get("force") == "true"

	if err := a.engine.DeleteLabel(r.Context(), name, force); err != nil {
		respondEngineError(w, err)
		return
	}

	a.broadcast(Event{Type: "label_deleted", Label: name})

	respondJSON(w, http.StatusOK, DeleteLabelResponse{Deleted: true, Name: name, Reason: "deleted"})
}
