package model

import "time"

// RawEvent is the intermediate type produced by the tokenizer and consumed by the classifier.
type RawEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"` // message portion of the line, trimmed
	Line      int       `json:"line"` // 1-based line number in the source text
}
