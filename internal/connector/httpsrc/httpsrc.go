// Package httpsrc fetches a patrol log export over HTTP.
package httpsrc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crimson-sun/patrolaudit/internal/connector"
	"github.com/crimson-sun/patrolaudit/internal/connector/httpclient"
)

func init() {
	connector.Register("http", func() connector.Source {
		return &Source{}
	})
}

// Source GETs cfg.Location. With Extra["format"] = "json" the body must be
// an object carrying either "log" (one text blob) or "lines" (one per line).
// Extra["timeout"] takes a Go duration string.
type Source struct{}

type export struct {
	Log   string   `json:"log"`
	Lines []string `json:"lines"`
}

func (s *Source) Fetch(ctx context.Context, cfg connector.SourceConfig) (string, error) {
	if cfg.Location == "" {
		return "", fmt.Errorf("http source: no URL given")
	}

	var opts []httpclient.Option
	if v := cfg.Extra["timeout"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return "", fmt.Errorf("http source: timeout: %w", err)
		}
		opts = append(opts, httpclient.WithTimeout(d))
	}
	c := httpclient.New(cfg.Location, cfg.Token, opts...)

	if cfg.Extra["format"] != "json" {
		text, err := c.GetText(ctx, "", nil)
		if err != nil {
			return "", fmt.Errorf("http source: %w", err)
		}
		return text, nil
	}

	var body export
	if err := c.GetJSON(ctx, "", nil, &body); err != nil {
		return "", fmt.Errorf("http source: %w", err)
	}
	if len(body.Lines) > 0 {
		return strings.Join(body.Lines, "\n"), nil
	}
	return body.Log, nil
}
