package sidecar

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sidecar-sync/core/luatable"
	"sidecar-sync/feature/sidecar/reconcile"
	"sidecar-sync/feature/sidecar/transport"
)

// PushResult classifies one book on the reverse sync path.
type PushResult string

const (
	// PushCreated means a sidecar was written to the device.
	PushCreated PushResult = "created"
	// PushNoMetadata means the library has no raw sidecar to push.
	PushNoMetadata PushResult = "no_metadata"
	// PushFailed means the sidecar could not be created.
	PushFailed PushResult = "failed"
)

// PushOutcome is the result of one book's push attempt.
type PushOutcome struct {
	BookUUID    string     `json:"book_uuid"`
	SidecarPath string     `json:"sidecar_path"`
	Result      PushResult `json:"result"`
	Reason      string     `json:"reason,omitempty"`
}

// PushReport aggregates a reverse sync pass.
type PushReport struct {
	Entries    []PushOutcome `json:"entries"`
	Candidates int           `json:"candidates"`
	Created    int           `json:"created"`
	NoMetadata int           `json:"no_metadata"`
	Failed     int           `json:"failed"`
}

func (r *PushReport) add(o PushOutcome) {
	r.Entries = append(r.Entries, o)
	switch o.Result {
	case PushCreated:
		r.Created++
	case PushNoMetadata:
		r.NoMetadata++
	case PushFailed:
		r.Failed++
	}
}

// Summary renders the counters for user-facing messaging.
func (r *PushReport) Summary() string {
	return fmt.Sprintf(
		"%d book(s) on device without sidecars.\nSidecar creation succeeded for %d.\nSidecar creation failed for %d.\nNo attempt made for %d (no raw sidecar in the library to push).",
		r.Candidates, r.Created, r.Failed, r.NoMetadata,
	)
}

// PushMissingSidecars writes a sidecar for every device book that does not
// have one, from the raw-sidecar JSON the library stored on a previous
// forward sync. Existing sidecars on the device are never touched.
func (s *Service) PushMissingSidecars(ctx context.Context) (*PushReport, error) {
	rawColumn := s.cfg.Columns.RawSidecar
	if rawColumn == "" {
		return nil, errors.New("sidecar: raw sidecar column not mapped, cannot push metadata to device")
	}

	books, err := s.store.ListDeviceBooks(ctx)
	if err != nil {
		return nil, err
	}

	report := &PushReport{}
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		scPath, ok := transport.SidecarPath(book.LPath)
		if !ok {
			continue
		}
		exists, err := s.trans.Exists(ctx, scPath)
		if err != nil {
			report.add(PushOutcome{BookUUID: book.UUID, SidecarPath: scPath, Result: PushFailed, Reason: err.Error()})
			report.Candidates++
			continue
		}
		if exists {
			continue
		}
		report.Candidates++
		report.add(s.pushBook(ctx, book.UUID, scPath, rawColumn))
	}

	s.logger.Info("push pass finished",
		zap.Int("candidates", report.Candidates),
		zap.Int("created", report.Created),
		zap.Int("no_metadata", report.NoMetadata),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// pushBook re-encodes one book's stored sidecar JSON and writes it out.
func (s *Service) pushBook(ctx context.Context, uuid, scPath, rawColumn string) PushOutcome {
	raw, ok, err := s.store.RawSidecar(ctx, uuid, rawColumn)
	if err != nil {
		if errors.Is(err, reconcile.ErrBookNotFound) {
			return PushOutcome{BookUUID: uuid, SidecarPath: scPath, Result: PushFailed, Reason: "not found in library"}
		}
		return PushOutcome{BookUUID: uuid, SidecarPath: scPath, Result: PushFailed, Reason: err.Error()}
	}
	if !ok {
		return PushOutcome{BookUUID: uuid, SidecarPath: scPath, Result: PushNoMetadata, Reason: "no raw sidecar stored"}
	}

	doc, err := luatable.FromJSON([]byte(raw))
	if err != nil {
		return PushOutcome{BookUUID: uuid, SidecarPath: scPath, Result: PushFailed, Reason: err.Error()}
	}

	if err := s.trans.Put(ctx, scPath, []byte(luatable.Encode(doc))); err != nil {
		return PushOutcome{BookUUID: uuid, SidecarPath: scPath, Result: PushFailed, Reason: err.Error()}
	}
	s.logger.Debug("created sidecar", zap.String("book_uuid", uuid), zap.String("path", scPath))
	return PushOutcome{BookUUID: uuid, SidecarPath: scPath, Result: PushCreated}
}
