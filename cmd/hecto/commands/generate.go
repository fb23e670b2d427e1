package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/logging"
	"github.com/dyluth/hecto/internal/printer"
	"github.com/dyluth/hecto/internal/puzzle"
)

var (
	generateDifficulty  string
	generateCount       int
	generateSeed        int64
	generateOutput      string
	generateMaxAttempts int
	generateCurated     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate solvable puzzles",
	Long: `Generate puzzles for a difficulty tier. Every puzzle is proven solvable
before it is printed, together with one solution.

Examples:
  hecto generate --difficulty hard
  hecto generate -n 5 --seed 42 --output json
  hecto generate --curated --difficulty expert`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateDifficulty, "difficulty", "d", "easy", "Tier: easy, medium, hard or expert")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 1, "Number of puzzles")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Random seed (0 = random)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "text", "Output format (text or json)")
	generateCmd.Flags().BoolVar(&generateCurated, "curated", false, "List the curated fallback puzzles for the tier instead")
	generateCmd.Flags().IntVar(&generateMaxAttempts, "max-attempts", puzzle.DefaultMaxAttempts, "Candidates to try before using the curated pool")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	d, err := puzzle.ParseDifficulty(generateDifficulty)
	if err != nil {
		return printer.Error("invalid difficulty", err.Error(), []string{"Valid tiers: easy, medium, hard, expert"})
	}
	if err := validateOutput(generateOutput, "text", "json"); err != nil {
		return err
	}
	if generateCount < 1 {
		return printer.Error("invalid count", fmt.Sprintf("--count must be at least 1, got %d", generateCount), nil)
	}
	if generateCurated {
		return printCurated(cmd, d)
	}

	logger, err := logging.New("warn", os.Stderr)
	if err != nil {
		return err
	}
	opts := []puzzle.GeneratorOption{puzzle.WithLogger(logger), puzzle.WithMaxAttempts(generateMaxAttempts)}
	if generateSeed != 0 {
		opts = append(opts, puzzle.WithSeed(generateSeed))
	}
	gen := puzzle.NewGenerator(puzzle.NewSolver(), opts...)

	enc := json.NewEncoder(cmd.OutOrStdout())
	for i := 0; i < generateCount; i++ {
		g, err := gen.GenerateDetailed(cmd.Context(), d)
		if err != nil {
			return fmt.Errorf("failed to generate puzzle: %w", err)
		}
		if generateOutput == "json" {
			if err := enc.Encode(g); err != nil {
				return err
			}
			continue
		}
		source := ""
		if g.FromPool {
			source = " (curated)"
		}
		printer.Printf("%s  %-6s  %s%s\n", printer.Puzzle(g.Sequence.String()), d, g.Witness, source)
	}
	return nil
}

func validateOutput(got string, valid ...string) error {
	for _, v := range valid {
		if got == v {
			return nil
		}
	}
	return printer.Error(
		"invalid output format",
		fmt.Sprintf("Unknown format: %s", got),
		[]string{fmt.Sprintf("Valid formats: %v", valid)},
	)
}

func printCurated(cmd *cobra.Command, d puzzle.Difficulty) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, e := range puzzle.Pool(d) {
		if generateOutput == "json" {
			if err := enc.Encode(e); err != nil {
				return err
			}
			continue
		}
		printer.Printf("%s  %-6s  %s\n", printer.Puzzle(e.Digits), d, e.Solution)
	}
	return nil
}
