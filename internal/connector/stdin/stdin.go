// Package stdin reads a patrol log from standard input.
package stdin

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/patrolaudit/internal/connector"
)

func init() {
	connector.Register("stdin", func() connector.Source {
		return New(os.Stdin)
	})
}

// Source reads everything from r until EOF.
type Source struct {
	r io.Reader
}

// New creates a Source over r.
func New(r io.Reader) *Source {
	return &Source{r: r}
}

// Fetch ignores cfg.Location. The read is abandoned if ctx is done first,
// leaving the reader goroutine blocked until r returns.
func (s *Source) Fetch(ctx context.Context, _ connector.SourceConfig) (string, error) {
	type result struct {
		b   []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		b, err := io.ReadAll(s.r)
		done <- result{b, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("stdin source: %w", res.err)
		}
		return string(res.b), nil
	}
}
