package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dmfarley/labeld/internal/engine"
)

// ReclassifyEntry handles POST /api/entries/{id}/reclassify.
func (a *API) ReclassifyEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "entry ID is required", nil)
		return
	}

	var req ReclassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Label) > 120 {
		respondError(w, http.StatusBadRequest, "label exceeds 120 characters", nil)
		return
	}

	result, err := a.engine.Reclassify(r.Context(), id, engine.LabelRef{ID: req.LabelID, Name: req.Label})
	if err != nil {
		respondEngineError(w, err)
		return
	}

	a.broadcast(Event{
		Type:    "entry_reclassified",
		EntryID: result.EntryID,
		Label:   result.AssignedLabel,
		Score:   result.SimilarityScore,
	})

	respondJSON(w, http.StatusOK, ReclassifyResponse{
		EntryID:         result.EntryID,
		Text:            result.Text,
		AssignedLabel:   result.AssignedLabel,
		SimilarityScore: result.SimilarityScore,
		Reason:          result.Reason,
	})
}

// DeleteEntry handles DELETE /api/entries/{id}.
func (a *API) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "entry ID is required", nil)
		return
	}

	if err := a.engine.DeleteEntry(r.Context(), id); err != nil {
		respondEngineError(w, err)
		return
	}

	a.broadcast(Event{Type: "entry_deleted", EntryID: id})

	respondJSON(w, http.StatusOK, DeleteEntryResponse{Deleted: true, EntryID: id})
}
