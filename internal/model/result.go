package model

// CountItem is one bar of a chart: a name and its number of occurrences.
type CountItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnalysisResult is the terminal output of one analysis.
type AnalysisResult struct {
	NonConformities []NonConformity `json:"non_conformities"`
	CountsByType    []CountItem     `json:"counts_by_type"`  // descending by count
	CountsByGuard   []CountItem     `json:"counts_by_guard"` // descending by count
	HasRounds       bool            `json:"has_rounds"`

	Events  int `json:"events"`  // lines that parsed into events
	Dropped int `json:"dropped"` // non-blank lines that did not
	Rounds  int `json:"rounds"`  // round start markers seen
}
