package engine

import (
	"context"

	"github.com/dmfarley/labeld/internal/storage"
)

// recomputeForLabel rebuilds a label's centroid and usage count from its
// current definition and member entries, and persists both. It must run
// whenever the label's membership changes in any direction.
//
// The centroid is the normalized 50/50 blend of the normalized definition
// embedding and the normalized mean of the member embeddings: equal weight
// for what the label means and what has actually been put in it. With no
// usable members the centroid falls back to the definition embedding alone.
//
// Any embedding provider failure propagates unchanged; the caller's
// transaction rolls back so no partial state is persisted.
func (e *Engine) recomputeForLabel(ctx context.Context, s storage.Store, label *storage.Label) error {
	defRaw, err := e.embedder.Embed(ctx, label.Definition)
	if err != nil {
		return err
	}
	defVec := Normalize(defRaw)

	entries, err := s.ListEntriesByLabel(ctx, label.ID)
	if err != nil {
		return err
	}
	usageCount := len(entries)

	if len(entries) == 0 {
		return e.persistCentroid(ctx, s, label, defVec, usageCount)
	}

	var memberVecs [][]float64
	for _, entry := range entries {
		if len(entry.Embedding) == len(defVec) {
			memberVecs = append(memberVecs, entry.Embedding)
			continue
		}

		// Cache miss (or stale dimensionality): fetch and write through.
		vector, err := e.embedder.Embed(ctx, entry.Text)
		if err != nil {
			return err
		}
		if len(vector) != len(defVec) {
			// Dimensionality drift from a provider/model change must not
			// corrupt the centroid; skip this member.
			continue
		}
		if err := s.UpdateEntryEmbedding(ctx, entry.ID, vector); err != nil {
			return err
		}
		memberVecs = append(memberVecs, vector)
	}

	if len(memberVecs) == 0 {
		return e.persistCentroid(ctx, s, label, defVec, usageCount)
	}

	memberMean := make([]float64, len(defVec))
	for _, vec := range memberVecs {
		for i, v := range vec {
			memberMean[i] += v
		}
	}
	for i := range memberMean {
		memberMean[i] /= float64(len(memberVecs))
	}
	memberVec := Normalize(memberMean)

	blended := make([]float64, len(defVec))
	for i := range blended {
		blended[i] = 0.5*defVec[i] + 0.5*memberVec[i]
	}

	return e.persistCentroid(ctx, s, label, Normalize(blended), usageCount)
}

// persistCentroid writes the recomputed centroid and usage count and keeps
// the in-memory label in sync for callers that report on it.
func (e *Engine) persistCentroid(ctx context.Context, s storage.Store, label *storage.Label, centroid []float64, usageCount int) error {
	if err := s.UpdateLabelCentroid(ctx, label.ID, centroid, usageCount); err != nil {
		return err
	}
	label.Centroid = centroid
	label.UsageCount = usageCount
	return nil
}
