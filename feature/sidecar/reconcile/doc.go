// Package reconcile decides whether and how incoming sidecar data updates
// library state.
//
// Reconcile runs one book through a fixed sequence of gates: resolve the
// book, extract mapped field values, check recency, check the
// already-finished guard, derive a reading status from progress when the
// sidecar carries none, diff against current library values, and apply what
// actually changed. Each gate can short-circuit into a skip; every error is
// contained at the book boundary and converted into an Outcome, so one bad
// book never aborts a batch.
//
// The pipeline holds no shared mutable state beyond the read-only catalog
// and configuration; reconciling different books concurrently is safe as
// long as the library store serializes its writes.
package reconcile
