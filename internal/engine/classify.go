package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmfarley/labeld/internal/storage"
)

// Result is the outcome of a successful classification.
type Result struct {
	EntryID         string
	AssignedLabel   string
	SimilarityScore float64
	CreatedNewLabel bool
	Reason          string

	// BestMatchLabel/BestMatchScore report the best similarity candidate for
	// observability; they are only set on the similarity path.
	BestMatchLabel *string
	BestMatchScore *float64
}

// Classify assigns text to a label and persists the entry.
//
// With a forced reference the entry is attached to that label regardless of
// score (ErrLabelNotFound if it does not resolve). Without one, the label
// with the strictly highest cosine similarity against the text's embedding
// wins, provided it clears the threshold; otherwise classification fails
// with NoLabelFitError and nothing is persisted — an entry is never stored
// without a label.
//
// Entry creation and the centroid recomputation of the affected label commit
// as one transaction.
func (e *Engine) Classify(ctx context.Context, text string, ref LabelRef) (*Result, error) {
	var result *Result
	err := e.store.RunInTx(ctx, func(s storage.Store) error {
		vector, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return err
		}

		if !ref.IsZero() {
			r, err := e.classifyForced(ctx, s, text, vector, ref)
			if err != nil {
				return err
			}
			result = r
			return nil
		}

		r, err := e.classifyBySimilarity(ctx, s, text, vector)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) classifyForced(ctx context.Context, s storage.Store, text string, vector []float64, ref LabelRef) (*Result, error) {
	label, err := resolveLabel(ctx, s, ref)
	if err != nil {
		return nil, err
	}

	score := CosineSimilarity(vector, label.Centroid)
	entry := &storage.TextEntry{
		ID:              uuid.NewString(),
		Text:            text,
		LabelID:         &label.ID,
		SimilarityScore: &score,
		Confidence:      confidenceForced,
		Embedding:       vector,
	}
	if err := s.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := e.recomputeForLabel(ctx, s, label); err != nil {
		return nil, err
	}

	return &Result{
		EntryID:         entry.ID,
		AssignedLabel:   label.Name,
		SimilarityScore: round4(score),
		Reason:          ReasonForced,
	}, nil
}

func (e *Engine) classifyBySimilarity(ctx context.Context, s storage.Store, text string, vector []float64) (*Result, error) {
	labels, err := s.ListLabels(ctx)
	if err != nil {
		return nil, err
	}

	best, bestScore := bestLabelMatch(vector, labels)

	var bestName *string
	var bestRounded *float64
	if best != nil {
		name := best.Name
		rounded := round4(bestScore)
		bestName = &name
		bestRounded = &rounded
	}

	if best == nil || bestScore < e.threshold {
		return nil, &NoLabelFitError{BestMatchLabel: bestName, BestMatchScore: bestRounded}
	}

	entry := &storage.TextEntry{
		ID:              uuid.NewString(),
		Text:            text,
		LabelID:         &best.ID,
		SimilarityScore: &bestScore,
		Confidence:      confidenceHigh,
		Embedding:       vector,
	}
	if err := s.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := e.recomputeForLabel(ctx, s, best); err != nil {
		return nil, err
	}

	return &Result{
		EntryID:         entry.ID,
		AssignedLabel:   best.Name,
		SimilarityScore: round4(bestScore),
		Reason:          ReasonMatched,
		BestMatchLabel:  bestName,
		BestMatchScore:  bestRounded,
	}, nil
}
