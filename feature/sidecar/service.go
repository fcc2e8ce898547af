package sidecar

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"sidecar-sync/core/fingerprint"
	"sidecar-sync/core/luatable"
	"sidecar-sync/feature/progress"
	"sidecar-sync/feature/sidecar/library"
	"sidecar-sync/feature/sidecar/reconcile"
	"sidecar-sync/feature/sidecar/transport"
)

// ProgressFunc reports incremental batch progress after each book's outcome
// is finalized, so a caller can display progress or decide to cancel
// between books.
type ProgressFunc func(done, total int, outcome reconcile.Outcome)

// Service orchestrates sidecar synchronization between the device transport
// and the library store.
type Service struct {
	store    *library.Store
	trans    transport.Transport
	pipeline *reconcile.Pipeline
	cfg      reconcile.Config
	remote   *progress.Client // nil when remote progress is disabled
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the sync service. remote may be nil.
func NewService(
	store *library.Store,
	trans transport.Transport,
	pipeline *reconcile.Pipeline,
	cfg reconcile.Config,
	remote *progress.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		trans:    trans,
		pipeline: pipeline,
		cfg:      cfg,
		remote:   remote,
		logger:   logger,
		now:      time.Now,
	}
}

// SyncFromDevice reconciles every device book's sidecar into the library.
// Books are independent; with Workers > 1 they are processed in parallel,
// while report entries stay in book-list order. onProgress may be nil.
func (s *Service) SyncFromDevice(ctx context.Context, onProgress ProgressFunc) (*reconcile.Report, error) {
	books, err := s.store.ListDeviceBooks(ctx)
	if err != nil {
		return nil, err
	}

	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(books) {
		workers = len(books)
	}

	outcomes := make([]reconcile.Outcome, len(books))
	jobs := make(chan int)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcome := s.syncBook(ctx, books[i])
				outcomes[i] = outcome

				mu.Lock()
				done++
				if onProgress != nil {
					onProgress(done, len(books), outcome)
				}
				mu.Unlock()
			}
		}()
	}
	for i := range books {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := reconcile.NewReport()
	for _, o := range outcomes {
		report.Add(o)
	}
	s.logger.Info("sync pass finished",
		zap.Int("total", report.Total()),
		zap.Int("applied", report.Applied),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// SyncOne reconciles a single book by UUID.
func (s *Service) SyncOne(ctx context.Context, uuid string) (reconcile.Outcome, error) {
	book, err := s.store.DeviceBook(ctx, uuid)
	if err != nil {
		if errors.Is(err, reconcile.ErrBookNotFound) {
			return reconcile.Failed(uuid, "not on device or not in library"), nil
		}
		return reconcile.Outcome{}, err
	}
	return s.syncBook(ctx, *book), nil
}

// syncBook runs one book end to end: fetch bytes, decode, enrich, reconcile.
// Every error is converted into an outcome at this boundary.
func (s *Service) syncBook(ctx context.Context, book library.DeviceBook) reconcile.Outcome {
	if err := ctx.Err(); err != nil {
		return reconcile.Skipped(book.UUID, "cancelled")
	}

	scPath, ok := transport.SidecarPath(book.LPath)
	if !ok {
		return reconcile.Failed(book.UUID, "book path has no extension: "+book.LPath)
	}

	payload, modTime, err := s.trans.Get(ctx, scPath)
	if err != nil {
		// A missing or unreadable sidecar is a soft skip: an unopened book
		// legitimately has none.
		if errors.Is(err, transport.ErrNotExist) {
			outcome := reconcile.Skipped(book.UUID, "no sidecar on device")
			outcome.SidecarPath = scPath
			return outcome
		}
		outcome := reconcile.Skipped(book.UUID, "sidecar unreadable: "+err.Error())
		outcome.SidecarPath = scPath
		return outcome
	}

	doc, err := luatable.Decode(string(payload))
	if err != nil {
		outcome := reconcile.Failed(book.UUID, "sidecar undecodable: "+err.Error())
		outcome.SidecarPath = scPath
		return outcome
	}

	InjectCalculated(doc, modTime, s.now())
	s.mergeRemoteProgress(ctx, book, doc)

	outcome := s.pipeline.Reconcile(ctx, book.UUID, doc)
	outcome.SidecarPath = scPath
	return outcome
}

// mergeRemoteProgress fills in read progress from the sync server when the
// sidecar itself carries none, e.g. a book last read on another device.
func (s *Service) mergeRemoteProgress(ctx context.Context, book library.DeviceBook, doc *luatable.Document) {
	if s.remote == nil {
		return
	}
	if _, has := doc.Lookup("percent_finished"); has {
		return
	}

	digest := s.bookDigest(ctx, book, doc)
	if digest == "" {
		return
	}

	remote, found, err := s.remote.GetProgress(ctx, digest)
	if err != nil {
		s.logger.Warn("remote progress lookup failed",
			zap.String("book_uuid", book.UUID),
			zap.Error(err),
		)
		return
	}
	if !found {
		return
	}

	doc.Root.SetStr("percent_finished", luatable.Float(remote.Percentage))
	if remote.Progress != "" {
		if _, has := doc.Lookup("last_xpointer"); !has {
			doc.Root.SetStr("last_xpointer", luatable.String(remote.Progress))
		}
	}
	s.logger.Debug("merged remote progress",
		zap.String("book_uuid", book.UUID),
		zap.Float64("percentage", remote.Percentage),
	)
}

// bookDigest returns the book's content fingerprint: the one the device
// already recorded in the sidecar when available, computed from the book
// payload otherwise.
func (s *Service) bookDigest(ctx context.Context, book library.DeviceBook, doc *luatable.Document) string {
	if v, ok := doc.Lookup("partial_md5_checksum"); ok && v.Kind() == luatable.KindString && v.Str() != "" {
		return v.Str()
	}

	f, err := s.trans.Open(ctx, book.LPath)
	if err != nil {
		return ""
	}
	defer f.Close()
	digest, err := fingerprint.Compute(f)
	if err != nil {
		return ""
	}
	return digest
}
