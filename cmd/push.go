package cmd

import (
	"context"

	"sidecar-sync/feature/sidecar"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pushCmd creates sidecars on the device for books that have none.
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Create sidecar files on the device for books missing one",
	Long: `For every book on the device without a sidecar, re-encodes the raw
sidecar JSON stored in the library and writes it to the device as a new
sidecar file. Books whose library record holds no raw sidecar are
reported but not touched.`,
	RunE: runPush,
}

func init() {
	RootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildSyncEnv()
	if err != nil {
		return err
	}
	l := env.logger

	report, err := env.service.PushMissingSidecars(ctx)
	if err != nil {
		return err
	}

	for _, e := range report.Entries {
		if e.Result == sidecar.PushFailed {
			l.Error("Sidecar creation failed",
				zap.String("book_uuid", e.BookUUID),
				zap.String("path", e.SidecarPath),
				zap.String("reason", e.Reason),
			)
		}
	}
	l.Info("Push report", zap.String("summary", report.Summary()))
	return nil
}
