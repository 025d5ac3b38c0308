package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
)

// Format names how a report is rendered.
type Format string

const (
	JSON Format = "json"
	Text Format = "report"
	CSV  Format = "csv"
)

// ParseFormat maps a flag value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, Text, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, report or csv)", s)
	}
}

// FormatReport returns a copy of rep with associated events trimmed
// according to verbosity.
func FormatReport(rep Report, verbosity compactor.Verbosity) Report {
	rep.AnalysisResult = compactor.New(verbosity).Compact(rep.AnalysisResult)
	return rep
}
