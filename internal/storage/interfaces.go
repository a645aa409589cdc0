// Package storage provides the persistence contracts for labeld.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Both the SQLite and the
// PostgreSQL backend implement the combined Store interface.
package storage

import "context"

// LabelStore provides CRUD operations over labels.
type LabelStore interface {
	// CreateLabel inserts a new label. The caller supplies the ID and the
	// normalized name. Returns ErrDuplicateName when the name is taken.
	CreateLabel(ctx context.Context, label *Label) error

	// GetLabelByName retrieves a label by its normalized name.
	// Returns ErrNotFound if the label doesn't exist.
	GetLabelByName(ctx context.Context, name string) (*Label, error)

	// GetLabelByID retrieves a label by ID.
	// Returns ErrNotFound if the label doesn't exist.
	GetLabelByID(ctx context.Context, id string) (*Label, error)

	// ListLabels returns all labels ordered by usage_count descending, then
	// name ascending. Classification relies on this ordering for deterministic
	// tie-breaking, so implementations must preserve it exactly.
	ListLabels(ctx context.Context) ([]*Label, error)

	// UpdateLabelCentroid persists a recomputed centroid and usage count.
	// Returns ErrNotFound if the label doesn't exist.
	UpdateLabelCentroid(ctx context.Context, id string, centroid []float64, usageCount int) error

	// DeleteLabel removes a label by ID.
	// Returns ErrNotFound if the label doesn't exist.
	DeleteLabel(ctx context.Context, id string) error

	// CountLabels returns the total number of labels.
	CountLabels(ctx context.Context) (int, error)
}

// EntryStore provides CRUD operations over text entries.
type EntryStore interface {
	// CreateEntry inserts a new entry. The caller supplies the ID.
	CreateEntry(ctx context.Context, entry *TextEntry) error

	// GetEntry retrieves an entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, id string) (*TextEntry, error)

	// ListEntriesByLabel returns all entries currently assigned to a label.
	ListEntriesByLabel(ctx context.Context, labelID string) ([]*TextEntry, error)

	// UpdateEntryAssignment rewrites an entry's label reference, similarity
	// score, and confidence marker. Passing a nil labelID detaches the entry.
	// Returns ErrNotFound if the entry doesn't exist.
	UpdateEntryAssignment(ctx context.Context, id string, labelID *string, score *float64, confidence string) error

	// UpdateEntryEmbedding caches the entry's embedding vector.
	// Returns ErrNotFound if the entry doesn't exist.
	UpdateEntryEmbedding(ctx context.Context, id string, embedding []float64) error

	// DeleteEntry removes an entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	DeleteEntry(ctx context.Context, id string) error

	// DetachEntriesByLabel sets label_id to NULL on every entry referencing
	// the label and returns the number of detached entries.
	DetachEntriesByLabel(ctx context.Context, labelID string) (int, error)

	// CountEntriesByLabelPresence counts entries that have (or lack) a label.
	CountEntriesByLabelPresence(ctx context.Context, hasLabel bool) (int, error)

	// RecentTextsByLabel returns up to limit entry texts for a label, newest
	// first. Used for label detail examples.
	RecentTextsByLabel(ctx context.Context, labelID string, limit int) ([]string, error)
}

// Store combines label and entry persistence with transaction support.
type Store interface {
	LabelStore
	EntryStore

	// RunInTx executes fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling RunInTx on a store that is already transactional reuses the
	// open transaction rather than nesting a new one.
	RunInTx(ctx context.Context, fn func(Store) error) error

	// Close releases any resources held by the store.
	Close() error
}
