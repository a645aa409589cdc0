// Package engine implements the classification and centroid maintenance core
// of labeld.
//
// The engine assigns free-form text to named labels by cosine similarity
// between embedding vectors, and keeps each label's centroid consistent as
// entries are added, reassigned, or removed. Persistence and embedding
// generation are collaborators injected at construction time; every exported
// operation runs as a single transaction against the store.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/dmfarley/labeld/internal/storage"
)

// Confidence markers recorded on entries at assignment time.
const (
	confidenceForced = "forced"
	confidenceHigh   = "high"
)

// Reasons reported with classification results.
const (
	ReasonForced  = "forced_label_assigned"
	ReasonMatched = "matched_existing_label"
)

// Config holds the engine's tunables. The threshold is injected explicitly
// rather than read from ambient process state so behavior is testable
// per-instance.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity the best-matching
	// label must reach for automatic assignment to succeed.
	SimilarityThreshold float64
}

// Embedder is the engine's view of the embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Engine is the classification and centroid maintenance core.
type Engine struct {
	store     storage.Store
	embedder  Embedder
	threshold float64
}

// New creates an engine over the given store and embedding provider.
func New(store storage.Store, embedder Embedder, cfg Config) *Engine {
	return &Engine{
		store:     store,
		embedder:  embedder,
		threshold: cfg.SimilarityThreshold,
	}
}

// LabelRef is an optional forced-label reference: a label ID, a label name,
// or neither. An empty or whitespace-only name counts as absent.
type LabelRef struct {
	ID   string
	Name string
}

// IsZero reports whether the reference is absent.
func (r LabelRef) IsZero() bool {
	return r.ID == "" && strings.TrimSpace(r.Name) == ""
}

// resolveLabel resolves a forced reference against the store, normalizing
// names exactly as label creation does. Returns ErrLabelNotFound when the
// reference does not resolve.
func resolveLabel(ctx context.Context, s storage.Store, ref LabelRef) (*storage.Label, error) {
	if ref.ID != "" {
		label, err := s.GetLabelByID(ctx, ref.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrLabelNotFound
		}
		return label, err
	}

	normalized, err := NormalizeLabelName(ref.Name)
	if err != nil {
		return nil, err
	}
	label, err := s.GetLabelByName(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrLabelNotFound
	}
	return label, err
}

// bestLabelMatch scans labels in listing order and returns the first label
// whose score is not exceeded by any later one (first-seen strictly-greater
// maximum). The listing order (usage_count DESC, name ASC) is what makes
// tie-breaking deterministic across requests.
func bestLabelMatch(vector []float64, labels []*storage.Label) (*storage.Label, float64) {
	var best *storage.Label
	var bestScore float64
	for _, label := range labels {
		score := CosineSimilarity(vector, label.Centroid)
		if best == nil || score > bestScore {
			best = label
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0.0
	}
	return best, bestScore
}
