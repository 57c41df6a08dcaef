// Package decoder reverses provider-specific link obfuscation. Each
// provider registers one LinkDecoder; new providers add a variant instead
// of branching on provider names inline.
package decoder

import (
	"context"
	"fmt"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
)

// Registry maps provider ids to their decode strategies.
type Registry struct {
	decoders map[string]ports.LinkDecoder
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]ports.LinkDecoder)}
}

// Register adds or replaces the decoder for a provider id.
func (r *Registry) Register(provider string, d ports.LinkDecoder) {
	if _, exists := r.decoders[provider]; !exists {
		r.order = append(r.order, provider)
	}
	r.decoders[provider] = d
}

// Decode dispatches to the provider's decoder. Unknown providers and
// malformed input both surface as decode failures, never a guessed URL.
func (r *Registry) Decode(ctx context.Context, provider, encodedLink string) (string, error) {
	d, ok := r.decoders[provider]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrDecodeFailed, provider)
	}
	return d.Decode(ctx, encodedLink)
}

// Match returns the first registered decoder that recognizes rawURL as its
// encoded link form. Used by the proxy path to decide whether a target
// needs decoding before the upstream fetch.
func (r *Registry) Match(rawURL string) (ports.LinkDecoder, bool) {
	for _, id := range r.order {
		if d := r.decoders[id]; d.Matches(rawURL) {
			return d, true
		}
	}
	return nil, false
}
