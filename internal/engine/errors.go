package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrLabelNotFound indicates that a forced label reference did not
	// resolve to an existing label.
	ErrLabelNotFound = errors.New("label not found")

	// ErrEntryNotFound indicates that an entry ID did not resolve.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrLabelInUse indicates a deletion attempt on a label that still has
	// member entries and no override was given.
	ErrLabelInUse = errors.New("label in use")
)

// NoLabelFitError is returned when similarity classification finds no label
// whose score clears the threshold. It carries the best candidate for
// observability; both fields are nil when no labels exist at all.
//
// This is an expected, user-facing outcome enforcing the safety rule that an
// entry is never stored without a label.
type NoLabelFitError struct {
	BestMatchLabel *string
	BestMatchScore *float64
}

func (e *NoLabelFitError) Error() string {
	if e.BestMatchLabel == nil {
		return "no label fit: no labels exist"
	}
	return fmt.Sprintf("no label fit: best match %q scored %.4f", *e.BestMatchLabel, *e.BestMatchScore)
}
