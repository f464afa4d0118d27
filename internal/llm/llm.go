package llm

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a provider failure at the client boundary so callers
// never have to parse provider error wording.
type FailureKind string

const (
	KindQuota     FailureKind = "quota"
	KindRateLimit FailureKind = "rate_limit"
	KindNotFound  FailureKind = "not_found"
	KindUnknown   FailureKind = "unknown"
)

type ProviderError struct {
	Provider string
	Kind     FailureKind
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Kind extracts the failure kind from any error chain.
func Kind(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

func kindForStatus(status int) FailureKind {
	switch status {
	case 402, 403:
		return KindQuota
	case 429:
		return KindRateLimit
	case 404:
		return KindNotFound
	default:
		return KindUnknown
	}
}

type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}
