// Package enrich applies an ordered chain of enrichers to an Event.
// Every enricher may add fields but must never remove them, and must
// be a no-op when its prerequisite field is absent.
package enrich

import (
	"context"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// Enricher adds fields to an Event in place.
type Enricher interface {
	Enrich(ctx context.Context, evt *types.Event)
}

// Chain runs a fixed, ordered list of enrichers.
type Chain struct {
	enrichers []Enricher
}

// NewChain builds a chain from the given enrichers, applied in order.
func NewChain(enrichers ...Enricher) *Chain {
	return &Chain{enrichers: enrichers}
}

// Apply runs every enricher against evt in sequence.
func (c *Chain) Apply(ctx context.Context, evt *types.Event) {
	for _, e := range c.enrichers {
		e.Enrich(ctx, evt)
	}
}
