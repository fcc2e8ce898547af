package cmd

import (
	"context"
	"fmt"

	"sidecar-sync/core/config"
	"sidecar-sync/core/fingerprint"
	"sidecar-sync/feature/progress"

	"github.com/spf13/cobra"
)

// progressCmd is the parent command for remote progress server operations.
var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Talk to the remote reading-progress server",
}

// progressCheckCmd verifies connectivity and credentials.
var progressCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity and credentials against the progress server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, server, err := buildProgressClient()
		if err != nil {
			return err
		}

		if err := client.Healthcheck(ctx); err != nil {
			return fmt.Errorf("healthcheck against %s failed: %w", server, err)
		}
		fmt.Printf("%s is reachable\n", server)

		if err := client.Authorize(ctx); err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
		fmt.Println("credentials accepted")
		return nil
	},
}

// progressGetCmd fetches the stored progress for a digest or a local file.
var progressGetCmd = &cobra.Command{
	Use:   "get <digest-or-file>",
	Short: "Fetch the stored reading progress for a book",
	Long: `Fetches the progress document for a book. The argument is either a
32-character partial MD5 digest or a path to a local book file, which is
fingerprinted first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, _, err := buildProgressClient()
		if err != nil {
			return err
		}

		digest := args[0]
		if len(digest) != 32 {
			digest, err = fingerprint.ComputeFile(args[0])
			if err != nil {
				return fmt.Errorf("fingerprint %s: %w", args[0], err)
			}
			fmt.Printf("digest: %s\n", digest)
		}

		doc, ok, err := client.GetProgress(ctx, digest)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no progress stored for this book")
			return nil
		}
		fmt.Printf("percentage: %.4f\nlocation:   %s\ndevice:     %s\nupdated:    %d\n",
			doc.Percentage, doc.Progress, doc.Device, doc.Timestamp)
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressCheckCmd)
	progressCmd.AddCommand(progressGetCmd)
	RootCmd.AddCommand(progressCmd)
}

// buildProgressClient loads configuration and builds the remote client
// regardless of the enabled flag, so the commands work for ad-hoc checks.
func buildProgressClient() (*progress.Client, string, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	client, err := progress.NewClient(cfg.Progress)
	if err != nil {
		return nil, "", err
	}
	return client, cfg.Progress.Server, nil
}
