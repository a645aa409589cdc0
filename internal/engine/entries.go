package engine

import (
	"context"
	"errors"

	"github.com/dmfarley/labeld/internal/storage"
)

// GetEntry returns an entry by ID.
func (e *Engine) GetEntry(ctx context.Context, entryID string) (*storage.TextEntry, error) {
	entry, err := e.store.GetEntry(ctx, entryID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	return entry, err
}

// DeleteEntry removes an entry and, when it belonged to a label, recomputes
// that label's centroid without the departed member. Deletion and
// recomputation commit as one transaction.
func (e *Engine) DeleteEntry(ctx context.Context, entryID string) error {
	return e.store.RunInTx(ctx, func(s storage.Store) error {
		entry, err := s.GetEntry(ctx, entryID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}

		priorLabelID := entry.LabelID
		if err := s.DeleteEntry(ctx, entry.ID); err != nil {
			return err
		}

		if priorLabelID == nil {
			return nil
		}

		label, err := s.GetLabelByID(ctx, *priorLabelID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return e.recomputeForLabel(ctx, s, label)
	})
}
