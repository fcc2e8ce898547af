package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sidecar-sync/core/luatable"
	"sidecar-sync/feature/sidecar/fields"
	"sidecar-sync/feature/sidecar/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLibrary is an in-memory Library for pipeline tests.
type fakeLibrary struct {
	records   map[string]*reconcile.Record
	updates   map[int64]map[string]fields.TypedValue
	updateErr error
}

func newFakeLibrary(records ...*reconcile.Record) *fakeLibrary {
	lib := &fakeLibrary{
		records: make(map[string]*reconcile.Record),
		updates: make(map[int64]map[string]fields.TypedValue),
	}
	for _, r := range records {
		lib.records[r.UUID] = r
	}
	return lib
}

func (l *fakeLibrary) Resolve(ctx context.Context, uuid string) (*reconcile.Record, error) {
	r, ok := l.records[uuid]
	if !ok {
		return nil, reconcile.ErrBookNotFound
	}
	return r, nil
}

func (l *fakeLibrary) Update(ctx context.Context, bookID int64, changes map[string]fields.TypedValue) error {
	if l.updateErr != nil {
		return l.updateErr
	}
	l.updates[bookID] = changes
	return nil
}

const bookUUID = "c0ffee00-1234-4321-aaaa-000000000001"

func testColumns() reconcile.Columns {
	return reconcile.Columns{
		PercentRead:    "#percent_read",
		PercentReadInt: "#percent_int",
		Rating:         "#rating",
		Status:         "#status",
		StatusBool:     "#finished",
		DateModified:   "#sidecar_mtime",
	}
}

func decode(t *testing.T, src string) *luatable.Document {
	t.Helper()
	doc, err := luatable.Decode(src)
	require.NoError(t, err)
	return doc
}

func newPipeline(cfg reconcile.Config, lib reconcile.Library) *reconcile.Pipeline {
	return reconcile.New(fields.Default(), cfg, lib, zap.NewNop())
}

func TestReconcileAppliesMappedFields(t *testing.T) {
	lib := newFakeLibrary(&reconcile.Record{
		ID: 7, UUID: bookUUID, Title: "The Dispossessed",
		Values: map[string]fields.TypedValue{},
	})
	p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

	doc := decode(t, `return {
		["percent_finished"] = 0.73,
		["summary"] = { ["status"] = "reading", ["rating"] = 4 },
	}`)

	outcome := p.Reconcile(context.Background(), bookUUID, doc)
	require.Equal(t, reconcile.ResultApplied, outcome.Result)

	written := lib.updates[7]
	require.NotNil(t, written)
	assert.True(t, fields.Float(0.73).Equal(written["#percent_read"]))
	assert.True(t, fields.Integer(73).Equal(written["#percent_int"]))
	assert.True(t, fields.Rating(8).Equal(written["#rating"]))
	assert.True(t, fields.Text("reading").Equal(written["#status"]))
	assert.True(t, fields.Bool(false).Equal(written["#finished"]))
}

func TestReconcileUnknownBookFails(t *testing.T) {
	p := newPipeline(reconcile.Config{Columns: testColumns()}, newFakeLibrary())

	outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 0.5 }`))
	assert.Equal(t, reconcile.ResultFailed, outcome.Result)
	assert.Equal(t, "not found in library", outcome.Reason)
}

func TestRecencyGateProgressFallback(t *testing.T) {
	cases := []struct {
		name            string
		libraryProgress float64
		sidecar         string
		want            reconcile.Result
	}{
		{"older progress skipped", 0.40, `return { ["percent_finished"] = 0.30 }`, reconcile.ResultSkipped},
		{"equal progress skipped", 0.40, `return { ["percent_finished"] = 0.40 }`, reconcile.ResultSkipped},
		{"newer progress applied", 0.40, `return { ["percent_finished"] = 0.60 }`, reconcile.ResultApplied},
		{"no sidecar progress skipped", 0.40, `return { ["summary"] = { ["rating"] = 3 } }`, reconcile.ResultSkipped},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lib := newFakeLibrary(&reconcile.Record{
				ID: 1, UUID: bookUUID,
				Values: map[string]fields.TypedValue{
					"#percent_read": fields.Float(tc.libraryProgress),
				},
			})
			p := newPipeline(reconcile.Config{SyncIfNewer: true, Columns: testColumns()}, lib)

			outcome := p.Reconcile(context.Background(), bookUUID, decode(t, tc.sidecar))
			assert.Equal(t, tc.want, outcome.Result)
		})
	}
}

func TestRecencyGateUsesModificationTime(t *testing.T) {
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	lib := newFakeLibrary(&reconcile.Record{
		ID: 1, UUID: bookUUID,
		Values: map[string]fields.TypedValue{
			"#sidecar_mtime": fields.Timestamp(newer),
			"#percent_read":  fields.Float(0.10),
		},
	})
	p := newPipeline(reconcile.Config{SyncIfNewer: true, Columns: testColumns()}, lib)

	// Older sidecar is skipped even though its progress is further along:
	// when both sides carry a modification time, time wins.
	doc := decode(t, `return {
		["percent_finished"] = 0.90,
		["calculated"] = { ["date_sidecar_modified"] = "`+older.Format("2006-01-02 15:04:05")+`" },
	}`)
	outcome := p.Reconcile(context.Background(), bookUUID, doc)
	assert.Equal(t, reconcile.ResultSkipped, outcome.Result)

	// A newer sidecar passes the gate regardless of progress.
	doc = decode(t, `return {
		["percent_finished"] = 0.05,
		["calculated"] = { ["date_sidecar_modified"] = "`+newer.Add(time.Hour).Format("2006-01-02 15:04:05")+`" },
	}`)
	outcome = p.Reconcile(context.Background(), bookUUID, doc)
	assert.Equal(t, reconcile.ResultApplied, outcome.Result)
}

func TestFinishedGate(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]fields.TypedValue
	}{
		{"by progress", map[string]fields.TypedValue{"#percent_read": fields.Float(1.0)}},
		{"by status", map[string]fields.TypedValue{"#status": fields.Text("complete")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: tc.values})
			p := newPipeline(reconcile.Config{NoSyncIfFinished: true, Columns: testColumns()}, lib)

			outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 0.10 }`))
			assert.Equal(t, reconcile.ResultSkipped, outcome.Result)
			assert.Equal(t, "already finished", outcome.Reason)
			assert.Empty(t, lib.updates)
		})
	}
}

func TestStatusDerivation(t *testing.T) {
	t.Run("in progress derives reading", func(t *testing.T) {
		lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
		p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

		outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 0.55 }`))
		require.Equal(t, reconcile.ResultApplied, outcome.Result)

		written := lib.updates[1]
		assert.True(t, fields.Text("reading").Equal(written["#status"]))
		assert.True(t, fields.Bool(false).Equal(written["#finished"]))
	})

	t.Run("finished derives complete", func(t *testing.T) {
		lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
		p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

		outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 1.0 }`))
		require.Equal(t, reconcile.ResultApplied, outcome.Result)

		written := lib.updates[1]
		assert.True(t, fields.Text("complete").Equal(written["#status"]))
		assert.True(t, fields.Bool(true).Equal(written["#finished"]))
	})

	t.Run("explicit status wins", func(t *testing.T) {
		lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
		p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

		doc := decode(t, `return { ["percent_finished"] = 1.0, ["summary"] = { ["status"] = "reading" } }`)
		outcome := p.Reconcile(context.Background(), bookUUID, doc)
		require.Equal(t, reconcile.ResultApplied, outcome.Result)

		assert.True(t, fields.Text("reading").Equal(lib.updates[1]["#status"]))
	})

	t.Run("abandoned is never overridden", func(t *testing.T) {
		lib := newFakeLibrary(&reconcile.Record{
			ID: 1, UUID: bookUUID,
			Values: map[string]fields.TypedValue{"#status": fields.Text("abandoned")},
		})
		p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

		outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 1.0 }`))
		require.Equal(t, reconcile.ResultApplied, outcome.Result)

		_, touched := lib.updates[1]["#status"]
		assert.False(t, touched, "abandoned status must stay")
	})
}

func TestReconcileAlreadyCurrent(t *testing.T) {
	lib := newFakeLibrary(&reconcile.Record{
		ID: 1, UUID: bookUUID,
		Values: map[string]fields.TypedValue{
			"#percent_read": fields.Float(0.73),
			"#percent_int":  fields.Integer(73),
			"#status":       fields.Text("reading"),
			"#finished":     fields.Bool(false),
		},
	})
	p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

	doc := decode(t, `return { ["percent_finished"] = 0.73, ["summary"] = { ["status"] = "reading" } }`)
	outcome := p.Reconcile(context.Background(), bookUUID, doc)

	assert.Equal(t, reconcile.ResultApplied, outcome.Result)
	assert.Equal(t, "already current", outcome.Reason)
	assert.Empty(t, outcome.Changed)
	assert.Empty(t, lib.updates)
}

func TestReconcileDryRun(t *testing.T) {
	lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
	p := newPipeline(reconcile.Config{DryRun: true, Columns: testColumns()}, lib)

	outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 0.5 }`))

	assert.Equal(t, reconcile.ResultApplied, outcome.Result)
	assert.Equal(t, "dry run", outcome.Reason)
	assert.NotEmpty(t, outcome.Changed)
	assert.Empty(t, lib.updates, "dry run must not write")
}

func TestReconcileUpdateFailure(t *testing.T) {
	lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
	lib.updateErr = errors.New("disk full")
	p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)

	outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 0.5 }`))
	assert.Equal(t, reconcile.ResultFailed, outcome.Result)
	assert.Contains(t, outcome.Reason, "disk full")
}

// upperStatus is a test plugin that uppercases the status value.
type upperStatus struct{ err error }

func (u *upperStatus) Name() string { return "upper-status" }

func (u *upperStatus) Transform(ctx context.Context, proposed map[string]fields.TypedValue, current *reconcile.Record) (map[string]fields.TypedValue, error) {
	if u.err != nil {
		return nil, u.err
	}
	if v, ok := proposed["#status"]; ok {
		proposed["#status"] = fields.Text(strings.ToUpper(v.Text))
	}
	return proposed, nil
}

func TestPluginHook(t *testing.T) {
	lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
	p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)
	require.NoError(t, p.Register(&upperStatus{}))

	doc := decode(t, `return { ["summary"] = { ["status"] = "reading" } }`)
	outcome := p.Reconcile(context.Background(), bookUUID, doc)
	require.Equal(t, reconcile.ResultApplied, outcome.Result)
	assert.True(t, fields.Text("READING").Equal(lib.updates[1]["#status"]))
}

func TestPluginErrorFailsBook(t *testing.T) {
	lib := newFakeLibrary(&reconcile.Record{ID: 1, UUID: bookUUID, Values: map[string]fields.TypedValue{}})
	p := newPipeline(reconcile.Config{Columns: testColumns()}, lib)
	require.NoError(t, p.Register(&upperStatus{err: errors.New("boom")}))

	outcome := p.Reconcile(context.Background(), bookUUID, decode(t, `return { ["percent_finished"] = 0.5 }`))
	assert.Equal(t, reconcile.ResultFailed, outcome.Result)
	assert.Contains(t, outcome.Reason, "upper-status")
}

func TestRegisterValidation(t *testing.T) {
	p := newPipeline(reconcile.Config{}, newFakeLibrary())
	require.NoError(t, p.Register(&upperStatus{}))
	assert.Error(t, p.Register(&upperStatus{}), "duplicate name must be rejected")
	assert.Error(t, p.Register(nil))
}
