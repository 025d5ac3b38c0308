package patrol

import "github.com/crimson-sun/patrolaudit/internal/model"

// Kind describes one category of non-conformity.
type Kind struct {
	Name  string // e.g. "sequence_incorrect"
	Label string // e.g. "Incorrect checkpoint sequence"
}

// Kinds returns every non-conformity category the auditor can report,
// in a fixed order.
func Kinds() []Kind {
	all := model.NonConformityKinds()
	out := make([]Kind, len(all))
	for i, k := range all {
		out[i] = Kind{Name: k.String(), Label: k.Label()}
	}
	return out
}
