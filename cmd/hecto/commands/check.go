package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/printer"
	"github.com/dyluth/hecto/internal/puzzle"
)

// errIncorrect is returned for a well-formed check that fails, so the exit
// status reflects the verdict.
var errIncorrect = errors.New("incorrect solution")

var checkCmd = &cobra.Command{
	Use:   "check <digits> <solution>",
	Short: "Check a solution against a puzzle",
	Long: `Check that a solution keeps the six digits in order and evaluates to
exactly 100. Adjacent digits concatenate; × and * multiply; ÷ and / divide.

Examples:
  hecto check 123456 "1+(2+3+4)×(5+6)"`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	digits, err := puzzle.ParseDigits(args[0])
	if err != nil {
		return printer.Error("invalid digits", err.Error(), []string{"Pass exactly six digits, e.g.:\n  hecto check 123456 \"1+(2+3+4)×(5+6)\""})
	}
	seq := puzzle.NewSequence(digits, "")
	solution := args[1]

	v, err := puzzle.Verify(seq, solution)
	switch {
	case errors.Is(err, puzzle.ErrDigitOrderViolation):
		printer.Verdict(false, "%s", err)
		return errIncorrect
	case err != nil:
		printer.Verdict(false, "%s: %s", solution, err)
		return errIncorrect
	case !puzzle.Matches(v, seq.Target):
		printer.Verdict(false, "%s = %s, not %d", solution, formatValue(v), seq.Target)
		return errIncorrect
	}
	printer.Verdict(true, "%s = %d", solution, seq.Target)
	return nil
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.6g", v)
}
