// Package file reads a patrol log from the local filesystem.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/crimson-sun/patrolaudit/internal/connector"
)

func init() {
	connector.Register("file", func() connector.Source {
		return &Source{}
	})
}

// Source reads cfg.Location as a path.
type Source struct{}

func (s *Source) Fetch(ctx context.Context, cfg connector.SourceConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if cfg.Location == "" {
		return "", fmt.Errorf("file source: no path given")
	}
	b, err := os.ReadFile(cfg.Location)
	if err != nil {
		return "", fmt.Errorf("file source: %w", err)
	}
	return string(b), nil
}
