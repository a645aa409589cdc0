// Package embed provides embedding provider clients for labeld.
//
// The core depends only on the Provider interface; Ollama is the default
// production adapter, with OpenAI selectable via configuration.
package embed

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates that the provider is unreachable or returned
	// a non-2xx status. Transient by nature; retry policy is the caller's
	// concern.
	ErrUnavailable = errors.New("embedding provider unavailable")

	// ErrBadResponse indicates that the provider was reachable but its
	// payload carried a missing, empty, or malformed embedding.
	ErrBadResponse = errors.New("embedding provider returned bad response")
)

// Provider generates a fixed-dimensionality vector for a piece of text.
// Implementations fail with ErrUnavailable or ErrBadResponse (wrapped).
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	GetModel() string
}

// HealthChecker is implemented by providers that can report reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
