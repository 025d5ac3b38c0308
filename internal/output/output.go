// Package output delivers analysis reports to their destinations.
package output

import (
	"context"

	"github.com/crimson-sun/patrolaudit/internal/model"
)

// Output defines the interface for report destinations.
type Output interface {
	Write(ctx context.Context, rep Report) error
	Close() error
}

// Report is one analyzed input. The embedded result's fields are flattened
// alongside Source when encoded as JSON.
type Report struct {
	Source string `json:"source"`
	model.AnalysisResult
}
