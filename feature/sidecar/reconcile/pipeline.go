package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sidecar-sync/core/luatable"
	"sidecar-sync/feature/sidecar/fields"
)

// Pipeline runs decoded sidecars through the reconciliation gates against
// the library. It is safe for concurrent use.
type Pipeline struct {
	catalog *fields.Catalog
	cfg     Config
	lib     Library
	plugins []Plugin
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a pipeline. The catalog and configuration are read-only from
// here on.
func New(catalog *fields.Catalog, cfg Config, lib Library, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		cfg:     cfg,
		lib:     lib,
		logger:  logger,
		now:     time.Now,
	}
}

// Reconcile runs one book through the gate sequence and returns its
// outcome. Errors never escape; they become failed outcomes.
func (p *Pipeline) Reconcile(ctx context.Context, uuid string, doc *luatable.Document) Outcome {
	// Gate 1: the book must still exist in the library.
	record, err := p.lib.Resolve(ctx, uuid)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return Failed(uuid, "not found in library")
		}
		return Failed(uuid, "library lookup: "+err.Error())
	}

	// Gate 2: extract every mapped field into the candidate update set.
	candidates := make(map[string]fields.TypedValue)
	for _, spec := range p.catalog.Specs() {
		column := p.cfg.Columns.Column(spec.Name)
		if column == "" {
			continue
		}
		v, ok, err := p.catalog.Resolve(doc, spec)
		if err != nil {
			return Failed(uuid, err.Error())
		}
		if !ok {
			continue
		}
		candidates[column] = v
	}

	incomingProgress, hasIncomingProgress := documentProgress(doc)
	currentProgress, hasCurrentProgress := p.currentProgress(record)

	// Gate 3: recency.
	if p.cfg.SyncIfNewer {
		if outcome, skip := p.recencyGate(record, candidates, incomingProgress, hasIncomingProgress, currentProgress, hasCurrentProgress); skip {
			return outcome
		}
	}

	// Gate 4: never overwrite a finished book with older in-progress data.
	if p.cfg.NoSyncIfFinished {
		if hasCurrentProgress && currentProgress >= 1.0 {
			return Skipped(uuid, "already finished")
		}
		if p.currentStatus(record) == StatusComplete {
			return Skipped(uuid, "already finished")
		}
	}

	// Gate 5: derive a status from progress when the sidecar carries none.
	p.deriveStatus(record, candidates, incomingProgress, hasIncomingProgress)

	// Plugin hook: proposed update set in, possibly modified set out.
	for _, plugin := range p.plugins {
		modified, err := plugin.Transform(ctx, candidates, record)
		if err != nil {
			return Failed(uuid, "plugin "+plugin.Name()+": "+err.Error())
		}
		candidates = modified
	}

	// Gate 6: keep only values that actually differ.
	changed := make(map[string]fields.TypedValue)
	for column, v := range candidates {
		cur, ok := record.Values[column]
		if !ok || !cur.Equal(v) {
			changed[column] = v
		}
	}
	if len(changed) == 0 {
		return Applied(uuid, nil, "already current")
	}

	// Gate 7: apply.
	if p.cfg.DryRun {
		p.logger.Info("dry run, not writing",
			zap.String("book_uuid", uuid),
			zap.Int("changed_fields", len(changed)),
		)
		return Applied(uuid, changed, "dry run")
	}
	if err := p.lib.Update(ctx, record.ID, changed); err != nil {
		return Failed(uuid, "library update: "+err.Error())
	}
	p.logger.Debug("updated book",
		zap.String("book_uuid", uuid),
		zap.Int("changed_fields", len(changed)),
	)
	return Applied(uuid, changed, "")
}

// recencyGate implements the timestamp comparison with progress fallback.
// The second return is true when the book must be skipped.
func (p *Pipeline) recencyGate(
	record *Record,
	candidates map[string]fields.TypedValue,
	incomingProgress float64, hasIncomingProgress bool,
	currentProgress float64, hasCurrentProgress bool,
) (Outcome, bool) {
	modColumn := p.cfg.Columns.DateModified
	if modColumn != "" {
		incoming, hasIncoming := candidates[modColumn]
		current, hasCurrent := record.Values[modColumn]
		if hasIncoming && hasCurrent {
			if !incoming.Time.After(current.Time) {
				return Skipped(record.UUID, "sidecar not newer than library"), true
			}
			return Outcome{}, false
		}
	}

	// Modification time unavailable on one side (wireless transports cannot
	// read file metadata); fall back to comparing read progress.
	if hasCurrentProgress && !hasIncomingProgress {
		return Skipped(record.UUID, "sidecar has no progress"), true
	}
	if hasIncomingProgress && hasCurrentProgress && incomingProgress <= currentProgress {
		return Skipped(record.UUID, "sidecar progress not further along"), true
	}
	return Outcome{}, false
}

// deriveStatus sets a derived reading status when the sidecar has progress
// but no explicit status. An abandoned book is left alone.
func (p *Pipeline) deriveStatus(
	record *Record,
	candidates map[string]fields.TypedValue,
	progress float64, hasProgress bool,
) {
	statusColumn := p.cfg.Columns.Status
	if statusColumn == "" || !hasProgress {
		return
	}
	if _, explicit := candidates[statusColumn]; explicit {
		return
	}
	current := p.currentStatus(record)
	if current == StatusAbandoned {
		return
	}

	boolColumn := p.cfg.Columns.StatusBool
	switch {
	case progress > 0 && progress < 1 && current != StatusReading:
		candidates[statusColumn] = fields.Text(StatusReading)
		if boolColumn != "" {
			candidates[boolColumn] = fields.Bool(false)
		}
		p.stampStatusChange(candidates, p.cfg.Columns.DateStarted)
	case progress >= 1 && current != StatusComplete:
		candidates[statusColumn] = fields.Text(StatusComplete)
		if boolColumn != "" {
			candidates[boolColumn] = fields.Bool(true)
		}
		p.stampStatusChange(candidates, p.cfg.Columns.DateFinished)
	}
}

// stampStatusChange records when the derived status flipped, on whichever
// of the status-change and started/finished columns are mapped.
func (p *Pipeline) stampStatusChange(candidates map[string]fields.TypedValue, extraColumn string) {
	now := p.now().UTC()
	if col := p.cfg.Columns.DateStatusChanged; col != "" {
		candidates[col] = fields.Timestamp(now)
	}
	if extraColumn != "" {
		candidates[extraColumn] = fields.Timestamp(now)
	}
}

// currentStatus reads the library's status column value, if mapped and set.
func (p *Pipeline) currentStatus(record *Record) string {
	col := p.cfg.Columns.Status
	if col == "" {
		return ""
	}
	if v, ok := record.Values[col]; ok {
		return v.Text
	}
	return ""
}

// currentProgress reads the library's progress as a 0-1 fraction from the
// fraction column, falling back to the integer-percent column.
func (p *Pipeline) currentProgress(record *Record) (float64, bool) {
	if col := p.cfg.Columns.PercentRead; col != "" {
		if v, ok := record.Values[col]; ok {
			return v.Float, true
		}
	}
	if col := p.cfg.Columns.PercentReadInt; col != "" {
		if v, ok := record.Values[col]; ok {
			return float64(v.Int) / 100, true
		}
	}
	return 0, false
}

// documentProgress reads the sidecar's canonical 0-1 progress fraction.
func documentProgress(doc *luatable.Document) (float64, bool) {
	v, ok := doc.Lookup("percent_finished")
	if !ok {
		return 0, false
	}
	if v.Kind() != luatable.KindInt && v.Kind() != luatable.KindFloat {
		return 0, false
	}
	return v.Number(), true
}
