package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depsolve/go-depsolve/lockfile"
)

func (c *CLI) newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two lock documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldDoc, err := lockfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			newDoc, err := lockfile.ReadFile(args[1])
			if err != nil {
				return err
			}

			diff := lockfile.Compare(oldDoc, newDoc)
			if diff.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Lock documents are identical")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, e := range diff.Added {
				fmt.Fprintf(out, "+ %s %s\n", e.Name, e.Version)
			}
			for _, e := range diff.Removed {
				fmt.Fprintf(out, "- %s %s\n", e.Name, e.Version)
			}
			for _, ch := range diff.Changed {
				fmt.Fprintf(out, "~ %s %s -> %s\n", ch.Old.Name, ch.Old.Version, ch.New.Version)
			}
			return nil
		},
	}
}
