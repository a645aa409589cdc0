package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmfarley/labeld/internal/storage"
)

// exampleLimit caps how many recent member texts a label detail carries.
const exampleLimit = 5

// LabelDetail is a label with its most recent member texts.
type LabelDetail struct {
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	UsageCount int      `json:"usage_count"`
	Examples   []string `json:"examples"`
}

// CreateLabel creates a new label from a display name and a free-text
// definition. The centroid starts as the normalized definition embedding and
// usage count starts at zero. Returns storage.ErrDuplicateName when the
// normalized name is taken.
func (e *Engine) CreateLabel(ctx context.Context, name, definition string) (*storage.Label, error) {
	normalized, err := NormalizeLabelName(name)
	if err != nil {
		return nil, err
	}

	var created *storage.Label
	err = e.store.RunInTx(ctx, func(s storage.Store) error {
		_, err := s.GetLabelByName(ctx, normalized)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateName, normalized)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		vector, err := e.embedder.Embed(ctx, definition)
		if err != nil {
			return err
		}

		label := &storage.Label{
			ID:         uuid.NewString(),
			Name:       normalized,
			Definition: definition,
			Centroid:   vector,
		}
		if err := s.CreateLabel(ctx, label); err != nil {
			return err
		}

		// Recomputation normalizes the centroid and settles the usage count.
		if err := e.recomputeForLabel(ctx, s, label); err != nil {
			return err
		}
		created = label
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetLabel returns a label's detail by (un-normalized) name, including up to
// five of its most recent member texts.
func (e *Engine) GetLabel(ctx context.Context, name string) (*LabelDetail, error) {
	normalized, err := NormalizeLabelName(name)
	if err != nil {
		return nil, err
	}

	label, err := e.store.GetLabelByName(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrLabelNotFound
	}
	if err != nil {
		return nil, err
	}

	examples, err := e.store.RecentTextsByLabel(ctx, label.ID, exampleLimit)
	if err != nil {
		return nil, err
	}

	return &LabelDetail{
		Name:       label.Name,
		Definition: label.Definition,
		UsageCount: label.UsageCount,
		Examples:   examples,
	}, nil
}

// ListLabels returns all labels in listing order (usage_count DESC, name ASC).
func (e *Engine) ListLabels(ctx context.Context) ([]*storage.Label, error) {
	return e.store.ListLabels(ctx)
}

// DeleteLabel removes a label by (un-normalized) name. A label that still has
// member entries is refused with ErrLabelInUse unless force is set; with
// force, every referencing entry is detached first so no entry is left
// pointing at a deleted label. Detached entries are never auto-deleted.
func (e *Engine) DeleteLabel(ctx context.Context, name string, force bool) error {
	normalized, err := NormalizeLabelName(name)
	if err != nil {
		return err
	}

	return e.store.RunInTx(ctx, func(s storage.Store) error {
		label, err := s.GetLabelByName(ctx, normalized)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrLabelNotFound
		}
		if err != nil {
			return err
		}

		if label.UsageCount > 0 && !force {
			return fmt.Errorf("%w: %s has %d entries", ErrLabelInUse, label.Name, label.UsageCount)
		}

		if _, err := s.DetachEntriesByLabel(ctx, label.ID); err != nil {
			return err
		}
		return s.DeleteLabel(ctx, label.ID)
	})
}
