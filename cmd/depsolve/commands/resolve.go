package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	depsolve "github.com/depsolve/go-depsolve"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the manifest and write the lock document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath, _ := cmd.Flags().GetString("manifest")
			outputPath, _ := cmd.Flags().GetString("output")
			indexURL, _ := cmd.Flags().GetString("index")
			snapshotPath, _ := cmd.Flags().GetString("snapshot")
			python, _ := cmd.Flags().GetString("python")
			extras, _ := cmd.Flags().GetStringSlice("extras")
			prereleases, _ := cmd.Flags().GetBool("prereleases")

			source, err := metadataSource(indexURL, snapshotPath)
			if err != nil {
				return err
			}

			opts := []depsolve.Option{
				depsolve.WithEnvironment(depsolve.LinuxEnvironment(python)),
			}
			if len(extras) > 0 {
				opts = append(opts, depsolve.WithExtras(extras...))
			}
			if prereleases {
				opts = append(opts, depsolve.WithPrereleases())
			}
			if l := logger(cmd); l != nil {
				opts = append(opts, depsolve.WithLogger(l))
			}

			res, err := depsolve.ResolveManifest(cmd.Context(), manifestPath, source, opts...)
			if err != nil {
				return err
			}

			if err := res.Lock().WriteFile(outputPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Locked %d packages (%d direct, %d transitive) to %s\n",
				res.Summary.TotalPackages, res.Summary.DirectPackages,
				res.Summary.TransitivePackages, outputPath)
			return nil
		},
	}

	cmd.Flags().StringP("manifest", "m", depsolve.DefaultManifestPath, "Manifest file to resolve")
	cmd.Flags().StringP("output", "o", "depsolve.lock", "Lock document to write")
	cmd.Flags().String("index", "", "Base URL of the package index")
	cmd.Flags().String("snapshot", "", "Offline index snapshot file (overrides --index)")
	cmd.Flags().String("python", "3.11", "Target interpreter version for marker evaluation")
	cmd.Flags().StringSlice("extras", nil, "Extras to request on the direct requirements")
	cmd.Flags().Bool("prereleases", false, "Admit prerelease versions everywhere")
	return cmd
}
