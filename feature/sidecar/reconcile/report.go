package reconcile

import "fmt"

// Report aggregates the outcomes of one sync pass: an ordered per-book list
// plus counters. Purely additive while a pass runs, read-only afterwards.
type Report struct {
	// Entries holds one outcome per processed book, in processing order.
	Entries []Outcome `json:"entries"`
	// Applied counts books whose updates were written (including no-ops).
	Applied int `json:"applied"`
	// Skipped counts books a gate declined to touch.
	Skipped int `json:"skipped"`
	// Failed counts books that could not be processed.
	Failed int `json:"failed"`
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add records an outcome and bumps the matching counter.
func (r *Report) Add(o Outcome) {
	r.Entries = append(r.Entries, o)
	switch o.Result {
	case ResultApplied:
		r.Applied++
	case ResultSkipped:
		r.Skipped++
	case ResultFailed:
		r.Failed++
	}
}

// Total returns the number of processed books.
func (r *Report) Total() int { return len(r.Entries) }

// Summary renders the counters for user-facing messaging. Counts and the
// per-book list are always presented together by callers: zero failures and
// zero successes are different outcomes.
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"Attempted to sync %d book(s).\nMetadata sync succeeded for %d.\nMetadata sync skipped for %d.\nMetadata sync failed for %d.\n(Skips may just mean you have not opened every book on the device yet.)",
		r.Total(), r.Applied, r.Skipped, r.Failed,
	)
}
