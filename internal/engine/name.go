package engine

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyLabelName indicates that a label name normalized to the empty
// string.
var ErrEmptyLabelName = errors.New("label name must not be empty")

// maxLabelNameLength caps normalized label names.
const maxLabelNameLength = 120

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	invalidChars  = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// NormalizeLabelName derives the canonical form of a label name: trimmed,
// lowercased, whitespace runs collapsed to a single underscore, characters
// outside [a-z0-9_] replaced with underscores, repeated underscores collapsed,
// leading/trailing underscores trimmed, truncated to 120 characters.
//
// The same function is applied at creation, lookup, and forced-assignment
// time so the same human-entered string always resolves to the same label.
// Normalization is idempotent.
func NormalizeLabelName(name string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = whitespaceRun.ReplaceAllString(cleaned, "_")
	cleaned = invalidChars.ReplaceAllString(cleaned, "_")
	cleaned = underscoreRun.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "_")

	if cleaned == "" {
		return "", ErrEmptyLabelName
	}

	if len(cleaned) > maxLabelNameLength {
		// Re-trim so a cut at an underscore boundary stays idempotent.
		cleaned = strings.TrimRight(cleaned[:maxLabelNameLength], "_")
	}
	return cleaned, nil
}
