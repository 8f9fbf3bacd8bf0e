package commands

import (
	"context"
	"slices"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "kitt-cli",
	Short:         "kitt-cli lists and exports the lectures of a Le Wagon kitt camp.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and parsing progress.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "kitt.json5", "The config file, a kitt.local.json5 next to it overrides it.")
}

// Verbose reports whether args turn on verbose output, it is read before
// cobra runs so logging is set up for the whole command.
func Verbose(args []string) bool {
	return slices.Contains(args, "--verbose") || slices.Contains(args, "-v")
}

// ExecuteContext runs the command line, errors are returned to main to decide
// the exit code.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
