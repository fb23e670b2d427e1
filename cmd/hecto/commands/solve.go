package commands

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/printer"
	"github.com/dyluth/hecto/internal/puzzle"
)

var (
	solveMaxNodes int
	solveTimeout  time.Duration
	solveOutput   string
)

var solveCmd = &cobra.Command{
	Use:   "solve <digits>",
	Short: "Search for a solution to a puzzle",
	Long: `Run the bounded solvability search on six digits and print one
expression that makes 100, if the search finds one within budget.

Examples:
  hecto solve 123456
  hecto solve 907318 --timeout 2s --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().IntVar(&solveMaxNodes, "max-nodes", puzzle.DefaultMaxNodes, "Search node budget")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 2*time.Second, "Search time budget")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "text", "Output format (text or json)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	digits, err := puzzle.ParseDigits(args[0])
	if err != nil {
		return printer.Error("invalid digits", err.Error(), []string{"Pass exactly six digits, e.g.:\n  hecto solve 123456"})
	}
	if err := validateOutput(solveOutput, "text", "json"); err != nil {
		return err
	}

	solver := puzzle.NewSolver(puzzle.WithMaxNodes(solveMaxNodes), puzzle.WithSearchTimeout(solveTimeout))
	res, err := solver.Solve(cmd.Context(), digits)
	if err != nil {
		return err
	}

	if solveOutput == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
	}
	switch {
	case res.Solvable:
		printer.Verdict(true, "%s = %d", res.Witness, puzzle.Target)
	case res.Exhausted:
		printer.Verdict(false, "no solution found within budget (%d nodes)", res.Nodes)
	default:
		printer.Verdict(false, "%s has no solution", digits)
	}
	return nil
}
