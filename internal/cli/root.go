// Package cli provides the command-line interface for chatwrap.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatwrap/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd, err := NewRootCommand()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "chatwrap",
		Short: "Summarize chat exports as a year-in-review",
		Long: `chatwrap reads plain-text chat exports and reports who talked the most,
when the chat was busiest and which emoji were used most.

Exports are read exactly as the phone wrote them: .txt files, the .zip
archives of "Export chat", or gzip-compressed text. Times are wall-clock
values in the zone given by --timezone (default: the host zone).

Settings can also come from the environment:
  CHATWRAP_CONFIG      path to a YAML profile
  CHATWRAP_LOG_LEVEL   debug, info, warn or error
  CHATWRAP_TIMEZONE    IANA zone name
  CHATWRAP_OUTPUT      text or json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := commands.BindGlobalFlags(rootCmd); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd, nil
}
