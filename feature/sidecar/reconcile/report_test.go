package reconcile_test

import (
	"testing"

	"sidecar-sync/feature/sidecar/reconcile"

	"github.com/stretchr/testify/assert"
)

func TestReportCounters(t *testing.T) {
	r := reconcile.NewReport()
	r.Add(reconcile.Applied("a", nil, ""))
	r.Add(reconcile.Applied("b", nil, "already current"))
	r.Add(reconcile.Skipped("c", "already finished"))
	r.Add(reconcile.Failed("d", "sidecar undecodable"))

	assert.Equal(t, 4, r.Total())
	assert.Equal(t, 2, r.Applied)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)

	// Entries stay in insertion order for per-book display.
	assert.Equal(t, "a", r.Entries[0].BookUUID)
	assert.Equal(t, "d", r.Entries[3].BookUUID)
}

func TestReportSummary(t *testing.T) {
	r := reconcile.NewReport()
	r.Add(reconcile.Applied("a", nil, ""))
	r.Add(reconcile.Skipped("b", "no sidecar on device"))

	s := r.Summary()
	assert.Contains(t, s, "Attempted to sync 2 book(s).")
	assert.Contains(t, s, "succeeded for 1")
	assert.Contains(t, s, "skipped for 1")
	assert.Contains(t, s, "failed for 0")
}
