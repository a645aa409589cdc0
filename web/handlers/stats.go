package handlers

import "net/http"

// GetStats handles GET /api/stats.
func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.engine.Stats(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		LabelsCount:              stats.Labels,
		ClassifiedEntriesCount:   stats.Classified,
		UnclassifiedEntriesCount: stats.Unclassified,
	})
}
