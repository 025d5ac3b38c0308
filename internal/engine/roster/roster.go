package roster

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Vocabulary is the fixed text the classifier matches against.
type Vocabulary struct {
	StartPhrase     string   `json:"start_phrase" yaml:"start_phrase"`
	DischargePhrase string   `json:"discharge_phrase" yaml:"discharge_phrase"`
	Guards          []string `json:"guards" yaml:"guards"`
	HeaderPrefixes  []string `json:"header_prefixes" yaml:"header_prefixes"`
	UnknownGuard    string   `json:"unknown_guard" yaml:"unknown_guard"`
}

// Roster is a validated, case-folded Vocabulary ready for matching.
type Roster struct {
	vocab     Vocabulary
	start     string
	discharge string
	guards    map[string]string // folded -> name as configured, upper-cased
	order     []string
}

// New validates the vocabulary and pre-folds every phrase and name.
func New(v Vocabulary) (*Roster, error) {
	if strings.TrimSpace(v.StartPhrase) == "" {
		return nil, errors.New("roster: start phrase is empty")
	}
	if strings.TrimSpace(v.DischargePhrase) == "" {
		return nil, errors.New("roster: discharge phrase is empty")
	}
	if v.UnknownGuard == "" {
		v.UnknownGuard = "Unknown"
	}

	r := &Roster{
		vocab:     v,
		start:     Fold(v.StartPhrase),
		discharge: Fold(v.DischargePhrase),
		guards:    make(map[string]string, len(v.Guards)),
	}
	for _, g := range v.Guards {
		key := Fold(g)
		if key == "" {
			return nil, errors.New("roster: empty guard name")
		}
		if _, dup := r.guards[key]; dup {
			return nil, fmt.Errorf("roster: duplicate guard name %q", g)
		}
		r.guards[key] = key
		r.order = append(r.order, key)
	}
	return r, nil
}

// StartPhrase returns the folded round-start phrase.
func (r *Roster) StartPhrase() string { return r.start }

// DischargePhrase returns the folded collector-discharge phrase.
func (r *Roster) DischargePhrase() string { return r.discharge }

// UnknownGuard is the name attributed before any guard is identified.
func (r *Roster) UnknownGuard() string { return r.vocab.UnknownGuard }

// HeaderPrefixes returns the line prefixes that mark a non-data header.
func (r *Roster) HeaderPrefixes() []string { return r.vocab.HeaderPrefixes }

// Guard reports whether folded text is exactly a roster name, and which.
func (r *Roster) Guard(folded string) (string, bool) {
	name, ok := r.guards[folded]
	return name, ok
}

// Guards returns the roster names in configured order.
func (r *Roster) Guards() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Vocabulary returns the vocabulary the roster was built from.
func (r *Roster) Vocabulary() Vocabulary { return r.vocab }

// Fold puts text in the canonical form used for matching: NFC, upper case, trimmed.
// A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return strings.TrimSpace(cases.Upper(language.Und).String(norm.NFC.String(s)))
}
