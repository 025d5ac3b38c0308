package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed corpus.json
var corpusJSON []byte

// CorpusEntry is a sample patrol log with the violations it must produce.
type CorpusEntry struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TotalLocations int      `json:"total_locations"`
	HasRounds      bool     `json:"has_rounds"`
	ExpectedKinds  []string `json:"expected_kinds"`
	Log            []string `json:"log"`
}

// Text joins the entry's lines into one log blob.
func (e CorpusEntry) Text() string {
	return strings.Join(e.Log, "\n")
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}
