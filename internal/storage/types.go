package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested label or entry was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateName indicates that a label with the same normalized name
	// already exists.
	ErrDuplicateName = errors.New("duplicate label name")
)

// Label is a named category with a representative centroid vector.
//
// UsageCount is derived: it always equals the number of entries whose LabelID
// references this label, and is only ever written by centroid recomputation.
type Label struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	Centroid   []float64 `json:"-"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TextEntry is a classified (or detached) piece of text.
//
// LabelID is nil while an entry is detached; SimilarityScore records the score
// at assignment time and is not re-validated afterwards. Embedding caches the
// entry's vector so centroid recomputation does not have to re-embed every
// member (write-through, populated lazily).
type TextEntry struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	LabelID         *string   `json:"label_id"`
	SimilarityScore *float64  `json:"similarity_score"`
	Confidence      string    `json:"confidence,omitempty"`
	Embedding       []float64 `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}
