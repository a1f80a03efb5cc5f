// Package commands implements the CLI commands for the depsolve tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/index"
)

// Version is the tool version, overridden at build time via -ldflags.
var Version = "dev"

// CLI represents the command line interface for depsolve.
type CLI struct {
	rootCmd *cobra.Command
}

// New creates a new CLI instance.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "depsolve",
		Short:         "Deterministic dependency resolution and lock files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	// No shorthand: -v belongs to the default version flag.
	rootCmd.PersistentFlags().Bool("verbose", false, "Log resolution progress to stderr")

	c := &CLI{rootCmd: rootCmd}

	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newDiffCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

// logger builds the resolver logger from the persistent verbose flag.
func logger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// metadataSource builds the source from the index flags: an offline
// snapshot when given, the HTTP index otherwise.
func metadataSource(indexURL, snapshotPath string) (depsolve.MetadataSource, error) {
	if snapshotPath != "" {
		return index.LoadFileSource(snapshotPath)
	}
	if indexURL == "" {
		return nil, fmt.Errorf("either --index or --snapshot is required")
	}
	return index.NewHTTPSource(indexURL), nil
}
