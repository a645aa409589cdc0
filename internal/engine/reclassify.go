package engine

import (
	"context"
	"errors"

	"github.com/dmfarley/labeld/internal/storage"
)

// ReclassifyResult is the outcome of a successful reclassification.
type ReclassifyResult struct {
	EntryID         string
	Text            string
	AssignedLabel   string
	SimilarityScore float64
	Reason          string
}

// Reclassify detaches an existing entry from its current label and attaches
// it to a new one, recomputing both labels' centroids:
//
//  1. detach the entry (label_id → null)
//  2. recompute the vacated label's centroid without this member
//  3. resolve the new assignment (forced reference or best similarity match)
//  4. recompute the new label's centroid with this member
//
// The vacated label is recomputed before the new assignment so both
// recomputations see accurate membership. Everything runs in one
// transaction: on any failure the entry is left exactly as it was, so a
// detach-without-reattach is never observably persisted. Old and new label
// may be the same; the recomputation simply runs twice.
func (e *Engine) Reclassify(ctx context.Context, entryID string, ref LabelRef) (*ReclassifyResult, error) {
	var result *ReclassifyResult
	err := e.store.RunInTx(ctx, func(s storage.Store) error {
		entry, err := s.GetEntry(ctx, entryID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}

		priorLabelID := entry.LabelID
		if err := s.UpdateEntryAssignment(ctx, entry.ID, nil, nil, ""); err != nil {
			return err
		}

		if priorLabelID != nil {
			prior, err := s.GetLabelByID(ctx, *priorLabelID)
			if err == nil {
				if err := e.recomputeForLabel(ctx, s, prior); err != nil {
					return err
				}
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		vector, err := e.embedder.Embed(ctx, entry.Text)
		if err != nil {
			return err
		}

		var (
			target     *storage.Label
			score      float64
			reason     string
			confidence string
		)
		if !ref.IsZero() {
			target, err = resolveLabel(ctx, s, ref)
			if err != nil {
				return err
			}
			score = CosineSimilarity(vector, target.Centroid)
			reason = ReasonForced
			confidence = confidenceForced
		} else {
			labels, err := s.ListLabels(ctx)
			if err != nil {
				return err
			}
			best, bestScore := bestLabelMatch(vector, labels)
			if best == nil || bestScore < e.threshold {
				var bestName *string
				var bestRounded *float64
				if best != nil {
					name := best.Name
					rounded := round4(bestScore)
					bestName = &name
					bestRounded = &rounded
				}
				return &NoLabelFitError{BestMatchLabel: bestName, BestMatchScore: bestRounded}
			}
			target = best
			score = bestScore
			reason = ReasonMatched
			confidence = confidenceHigh
		}

		if err := s.UpdateEntryAssignment(ctx, entry.ID, &target.ID, &score, confidence); err != nil {
			return err
		}
		if err := e.recomputeForLabel(ctx, s, target); err != nil {
			return err
		}

		result = &ReclassifyResult{
			EntryID:         entry.ID,
			Text:            entry.Text,
			AssignedLabel:   target.Name,
			SimilarityScore: round4(score),
			Reason:          reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
