package engine

import "context"

// Stats summarizes the stored corpus.
type Stats struct {
	Labels       int
	Classified   int
	Unclassified int
}

// Stats returns label and entry counts. Unclassified counts entries that are
// currently detached (label deleted with force, or mid-reclassification
// leftovers recovered after a crash).
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	labels, err := e.store.CountLabels(ctx)
	if err != nil {
		return nil, err
	}
	classified, err := e.store.CountEntriesByLabelPresence(ctx, true)
	if err != nil {
		return nil, err
	}
	unclassified, err := e.store.CountEntriesByLabelPresence(ctx, false)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Labels:       labels,
		Classified:   classified,
		Unclassified: unclassified,
	}, nil
}
