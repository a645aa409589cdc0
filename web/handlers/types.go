package handlers

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ClassifyRequest is the request format for POST /api/classify.
// Label and LabelID optionally force-assign to an existing label; when both
// are absent (or empty) the request uses similarity matching.
type ClassifyRequest struct {
	Text    string `json:"text"`
	Label   string `json:"label,omitempty"`
	LabelID string `json:"label_id,omitempty"`
}

// ClassificationResponse is the response format for POST /api/classify.
type ClassificationResponse struct {
	EntryID         string   `json:"entry_id"`
	Text            string   `json:"text"`
	AssignedLabel   string   `json:"assigned_label"`
	SimilarityScore float64  `json:"similarity_score"`
	CreatedNewLabel bool     `json:"created_new_label"`
	Reason          string   `json:"reason"`
	BestMatchLabel  *string  `json:"best_match_label,omitempty"`
	BestMatchScore  *float64 `json:"best_match_score,omitempty"`
}

// NoLabelFitResponse is the 422 body when no label clears the threshold.
type NoLabelFitResponse struct {
	Message        string   `json:"message"`
	BestMatchLabel *string  `json:"best_match_label"`
	BestMatchScore *float64 `json:"best_match_score"`
}

// ReclassifyRequest is the request format for POST /api/entries/{id}/reclassify.
type ReclassifyRequest struct {
	Label   string `json:"label,omitempty"`
	LabelID string `json:"label_id,omitempty"`
}

// ReclassifyResponse is the response format for POST /api/entries/{id}/reclassify.
type ReclassifyResponse struct {
	EntryID         string  `json:"entry_id"`
	Text            string  `json:"text"`
	AssignedLabel   string  `json:"assigned_label"`
	SimilarityScore float64 `json:"similarity_score"`
	Reason          string  `json:"reason"`
}

// DeleteEntryResponse is the response format for DELETE /api/entries/{id}.
type DeleteEntryResponse struct {
	Deleted bool   `json:"deleted"`
	EntryID string `json:"entry_id"`
}

// LabelResponse is a single label in GET /api/labels.
type LabelResponse struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	UsageCount int    `json:"usage_count"`
}

// LabelDetailResponse is the response format for GET /api/labels/{name}.
type LabelDetailResponse struct {
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	UsageCount int      `json:"usage_count"`
	Examples   []string `json:"examples"`
}

// CreateLabelRequest is the request format for POST /api/labels.
type CreateLabelRequest struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// CreateLabelResponse is the response format for POST /api/labels.
type CreateLabelResponse struct {
	Created bool   `json:"created"`
	Name    string `json:"name"`
}

// DeleteLabelResponse is the response format for DELETE /api/labels/{name}.
type DeleteLabelResponse struct {
	Deleted bool   `json:"deleted"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	LabelsCount              int `json:"labels_count"`
	ClassifiedEntriesCount   int `json:"classified_entries_count"`
	UnclassifiedEntriesCount int `json:"unclassified_entries_count"`
}

// HealthResponse is the response format for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
}
