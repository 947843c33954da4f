package model

import "fmt"

// Outcome classifies how a directory entry was handled.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed" // resized until under the size limit
	OutcomeConverted Outcome = "converted" // under the limit, re-encoded only
	OutcomeSkipped   Outcome = "skipped"   // left untouched
	OutcomeFailed    Outcome = "failed"    // per-file error, see Err
)

// Result is the per-entry record collected by the batch scheduler.
type Result struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Destination string   `json:"destination,omitempty"`
	Outcome     Outcome  `json:"outcome"`
	Passes      int      `json:"passes"`
	Size        int64    `json:"size"`
	Dimensions  Metadata `json:"dimensions"`
	Err         error    `json:"-"`
	Error       string   `json:"error,omitempty"`
}

// Summary aggregates the results of one batch run.
//
// Converted and Failed are subsets of Skipped: only entries that went through
// the convergence loop successfully count as processed.
type Summary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
}

// String returns a human-readable summary line.
func (s Summary) String() string {
	return fmt.Sprintf(
		"Total files: %d | Processed: %d | Skipped: %d (converted: %d, failed: %d)",
		s.Total, s.Processed, s.Skipped, s.Converted, s.Failed,
	)
}
