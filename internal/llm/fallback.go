package llm

import (
	"context"
	"fmt"
	"log"
)

// Fallback tries the primary provider, then the secondary. Exactly one
// attempt per provider per call; no state is kept across calls. The
// secondary is only contacted after the primary attempt has fully resolved.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func NewFallback(primary, secondary Provider) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Generate(ctx context.Context, prompt string) (string, error) {
	text, primaryErr := f.Primary.Generate(ctx, prompt)
	if primaryErr == nil {
		return text, nil
	}

	log.Printf("llm: %s failed (kind=%s), falling back to %s: %v",
		f.Primary.Name(), Kind(primaryErr), f.Secondary.Name(), primaryErr)

	text, secondaryErr := f.Secondary.Generate(ctx, prompt)
	if secondaryErr == nil {
		return text, nil
	}

	return "", fmt.Errorf("all providers failed: %s: %w; %s: %w",
		f.Primary.Name(), primaryErr, f.Secondary.Name(), secondaryErr)
}
