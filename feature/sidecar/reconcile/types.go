package reconcile

import (
	"context"
	"errors"

	"sidecar-sync/feature/sidecar/fields"
)

// Reading statuses as KOReader writes them into summary.status.
const (
	// StatusReading marks a book in progress.
	StatusReading = "reading"
	// StatusComplete marks a finished book.
	StatusComplete = "complete"
	// StatusAbandoned marks a book put aside. Never auto-overridden by
	// status derivation.
	StatusAbandoned = "abandoned"
)

// ErrBookNotFound is returned by Library.Resolve when the identifier is
// unknown, typically because the book was removed from the library after
// the device list was captured.
var ErrBookNotFound = errors.New("reconcile: book not found in library")

// Record is the library-side view of one book: its identifiers and the
// current typed value of every populated column.
type Record struct {
	// ID is the library's internal book id.
	ID int64
	// UUID is the stable identifier shared with the device list.
	UUID string
	// Title is the display title, carried for reports.
	Title string
	// Values holds current column values keyed by column name. Columns the
	// library has never written are absent.
	Values map[string]fields.TypedValue
}

// Library resolves identifiers to records and durably writes updates. The
// engine only reads records and proposes writes through this interface.
type Library interface {
	// Resolve returns the record for a book UUID, or ErrBookNotFound.
	Resolve(ctx context.Context, uuid string) (*Record, error)
	// Update durably writes the changed column values for a book.
	Update(ctx context.Context, bookID int64, changes map[string]fields.TypedValue) error
}

// Result classifies the outcome of reconciling one book.
type Result string

const (
	// ResultApplied means the book was inspected and brought current. An
	// empty change set is still applied, not skipped.
	ResultApplied Result = "applied"
	// ResultSkipped means a gate decided the book must not be touched.
	ResultSkipped Result = "skipped"
	// ResultFailed means the book could not be processed.
	ResultFailed Result = "failed"
)

// Outcome is the immutable result of one book's reconciliation pass.
type Outcome struct {
	// BookUUID identifies the book.
	BookUUID string `json:"book_uuid"`
	// SidecarPath is the device path the sidecar came from, when known.
	SidecarPath string `json:"sidecar_path,omitempty"`
	// Result is the outcome class.
	Result Result `json:"result"`
	// Reason explains skips and failures, and annotates no-op applies.
	Reason string `json:"reason,omitempty"`
	// Changed holds a copy of the applied column values for audit display.
	Changed map[string]fields.TypedValue `json:"changed,omitempty"`
}

// Applied builds a successful outcome with the given change set.
func Applied(uuid string, changed map[string]fields.TypedValue, reason string) Outcome {
	return Outcome{BookUUID: uuid, Result: ResultApplied, Reason: reason, Changed: changed}
}

// Skipped builds a gate-skip outcome.
func Skipped(uuid, reason string) Outcome {
	return Outcome{BookUUID: uuid, Result: ResultSkipped, Reason: reason}
}

// Failed builds a failure outcome.
func Failed(uuid, reason string) Outcome {
	return Outcome{BookUUID: uuid, Result: ResultFailed, Reason: reason}
}
