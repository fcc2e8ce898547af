package cmd

import (
	"fmt"

	"sidecar-sync/core/fingerprint"

	"github.com/spf13/cobra"
)

// fingerprintCmd prints the partial MD5 digest of local files, useful for
// matching a book file against a remote progress document.
var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <file> [file...]",
	Short: "Print the partial MD5 digest of book files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			digest, err := fingerprint.ComputeFile(path)
			if err != nil {
				return fmt.Errorf("fingerprint %s: %w", path, err)
			}
			fmt.Printf("%s  %s\n", digest, path)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(fingerprintCmd)
}
