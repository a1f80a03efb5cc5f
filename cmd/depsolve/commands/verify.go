package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/depsolve/go-depsolve/lockfile"
)

func (c *CLI) newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [lockfile]",
		Short: "Check lock document integrity and artifact digests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lockPath := "depsolve.lock"
			if len(args) == 1 {
				lockPath = args[0]
			}
			artifactsDir, _ := cmd.Flags().GetString("artifacts")

			// ReadFile recomputes the content hash, so tampering with the
			// document itself fails here.
			doc, err := lockfile.ReadFile(lockPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lock document OK: %d packages, %s\n",
				len(doc.Packages), doc.Metadata.ContentHash)

			if artifactsDir == "" {
				return nil
			}
			if err := lockfile.VerifyAll(doc, dirFetcher(artifactsDir)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "All artifact digests OK\n")
			return nil
		},
	}

	cmd.Flags().StringP("artifacts", "a", "", "Directory of downloaded artifacts to verify")
	return cmd
}

// dirFetcher reads artifact files from a flat local directory.
type dirFetcher string

var _ lockfile.ArtifactFetcher = dirFetcher("")

func (d dirFetcher) Fetch(name, version, file string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.Base(file)))
}
