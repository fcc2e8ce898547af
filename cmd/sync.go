package cmd

import (
	"context"

	"sidecar-sync/feature/sidecar/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncDryRun     bool
	syncWorkers    int
	syncNewerOnly  bool
	syncNoFinished bool
	syncBookUUID   string
	syncVerbose    bool
)

// syncCmd runs a forward sync pass from the device into the library.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync sidecar files from the device into the library",
	Long: `Reads the sidecar file of every book on the device and reconciles
its reading state into the library database.

Examples:
  # Full pass, report only
  sidecar-sync sync --dry-run

  # Full pass with 4 workers
  sidecar-sync sync --workers 4

  # Sync a single book
  sidecar-sync sync --uuid c0ffee00-1234-4321-aaaa-000000000001`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Compute changes without writing to the library")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "Number of parallel workers (0 uses the configured value)")
	syncCmd.Flags().BoolVar(&syncNewerOnly, "newer-only", false, "Only apply sidecars newer than the library record")
	syncCmd.Flags().BoolVar(&syncNoFinished, "no-finished", false, "Skip books the library already marks finished")
	syncCmd.Flags().StringVar(&syncBookUUID, "uuid", "", "Sync a single book by its library UUID")
	syncCmd.Flags().BoolVar(&syncVerbose, "verbose", false, "Log every book, not just applied ones")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildSyncEnv()
	if err != nil {
		return err
	}
	l := env.logger

	// Flags override the configured behavior for this run only.
	if syncDryRun {
		env.cfg.Sync.DryRun = true
	}
	if syncWorkers > 0 {
		env.cfg.Sync.Workers = syncWorkers
	}
	if syncNewerOnly {
		env.cfg.Sync.SyncIfNewer = true
	}
	if syncNoFinished {
		env.cfg.Sync.NoSyncIfFinished = true
	}
	env.rebuildService()

	if syncBookUUID != "" {
		outcome, err := env.service.SyncOne(ctx, syncBookUUID)
		if err != nil {
			return err
		}
		logOutcome(l, outcome)
		return nil
	}

	report, err := env.service.SyncFromDevice(ctx, func(done, total int, outcome reconcile.Outcome) {
		if syncVerbose || outcome.Result == reconcile.ResultApplied {
			l.Info("Book processed",
				zap.Int("done", done),
				zap.Int("total", total),
				zap.String("book_uuid", outcome.BookUUID),
				zap.String("result", string(outcome.Result)),
			)
		}
	})
	if err != nil {
		return err
	}

	for _, e := range report.Entries {
		if e.Result == reconcile.ResultFailed {
			logOutcome(l, e)
		}
	}
	l.Info("Sync report", zap.String("summary", report.Summary()))
	return nil
}

// logOutcome logs a single book outcome at the level its result deserves.
func logOutcome(l *zap.Logger, o reconcile.Outcome) {
	f := []zap.Field{
		zap.String("book_uuid", o.BookUUID),
		zap.String("result", string(o.Result)),
		zap.String("reason", o.Reason),
	}
	switch o.Result {
	case reconcile.ResultFailed:
		l.Error("Book sync failed", f...)
	case reconcile.ResultSkipped:
		l.Info("Book skipped", f...)
	default:
		l.Info("Book synced", append(f, zap.Int("changed_fields", len(o.Changed)))...)
	}
}
