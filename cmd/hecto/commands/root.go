package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hecto",
	Short: "Hecto - reach 100 with six digits, alone or in a duel",
	Long: `Hecto generates and checks Hectoc puzzles: six digits, kept in order,
combined with + - × ÷ ^ and parentheses to make exactly 100.

It also runs the duel service, where two players race on the same puzzle or
alternate turns, synchronized over a realtime channel.`,
	// Prevent silent success when unknown flags are passed to the root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Errors are printed by the printer package,
// so cobra's own error and usage output is silenced.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
