// Package connector defines where patrol log text comes from.
package connector

import (
	"context"
)

// Source obtains one complete patrol log as text.
type Source interface {
	// Fetch reads the whole log. Sources never stream; the engine needs the
	// full blob to sort and reconstruct rounds.
	Fetch(ctx context.Context, cfg SourceConfig) (string, error)
}

// SourceConfig holds provider-specific settings.
type SourceConfig struct {
	Provider string
	Location string // path, URL, or "-" for stdin
	Token    string
	Extra    map[string]string
}

// Label is a short human name for the input, used in logs and multi-input results.
func (c SourceConfig) Label() string {
	if c.Location == "" || c.Location == "-" {
		return "<stdin>"
	}
	return c.Location
}
