package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/logging"
	"github.com/dyluth/hecto/internal/printer"
	"github.com/dyluth/hecto/internal/puzzle"
	"github.com/dyluth/hecto/internal/scoring"
)

var (
	playDifficulty string
	playRounds     int
	playSeed       int64
	playDigits     string
)

// playNow is the round clock. Tests replace it.
var playNow = time.Now

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play single-player rounds in the terminal",
	Long: `Play timed single-player rounds. Type an expression for each puzzle;
wrong answers may be retried until the round clock runs out. Type "skip" to
reveal a solution and give up the round, or "quit" to stop.

Correct answers score (100 + half the seconds left) times the difficulty
multiplier, with a 20% bonus from the third answer in a row.

Examples:
  hecto play --difficulty medium --rounds 5
  hecto play --digits 123456`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&playDifficulty, "difficulty", "d", "easy", "Tier: easy, medium, hard or expert")
	playCmd.Flags().IntVarP(&playRounds, "rounds", "n", 3, "Number of rounds")
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "Random seed (0 = random)")
	playCmd.Flags().StringVar(&playDigits, "digits", "", "Play this puzzle every round instead of generating one")
	rootCmd.AddCommand(playCmd)
}

// errQuit stops the run early at the player's request.
var errQuit = errors.New("quit")

func runPlay(cmd *cobra.Command, args []string) error {
	d, err := puzzle.ParseDifficulty(playDifficulty)
	if err != nil {
		return printer.Error("invalid difficulty", err.Error(), []string{"Valid tiers: easy, medium, hard, expert"})
	}
	if playRounds < 1 {
		return printer.Error("invalid rounds", fmt.Sprintf("--rounds must be at least 1, got %d", playRounds), nil)
	}
	var fixed *puzzle.Sequence
	if playDigits != "" {
		digits, err := puzzle.ParseDigits(playDigits)
		if err != nil {
			return printer.Error("invalid digits", err.Error(), []string{"Pass exactly six digits, e.g.:\n  hecto play --digits 123456"})
		}
		seq := puzzle.NewSequence(digits, d)
		fixed = &seq
	}

	logger, err := logging.New("warn", os.Stderr)
	if err != nil {
		return err
	}
	opts := []puzzle.GeneratorOption{puzzle.WithLogger(logger)}
	if playSeed != 0 {
		opts = append(opts, puzzle.WithSeed(playSeed))
	}
	gen := puzzle.NewGenerator(puzzle.NewSolver(), opts...)

	session := scoring.NewSession(d)
	input := bufio.NewScanner(cmd.InOrStdin())

	played := 0
	for round := 1; round <= playRounds; round++ {
		seq := fixed
		if seq == nil {
			next, err := gen.Generate(cmd.Context(), d)
			if err != nil {
				return fmt.Errorf("failed to generate puzzle: %w", err)
			}
			seq = &next
		}

		played++
		printer.Step("Round %d/%d  %s  (%s)\n", round, playRounds, printer.Puzzle(seq.String()), d.RoundTime())
		err := playRound(cmd, gen, session, *seq, input)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			return err
		}
	}

	printer.Println()
	printer.Info("Score %d  solved %d/%d  level %d\n", session.Score, session.Solved, played, session.Level)
	return nil
}

// playRound reads answers until one is correct, the clock runs out, the
// player skips or input ends.
func playRound(cmd *cobra.Command, gen *puzzle.Generator, session *scoring.Session, seq puzzle.Sequence, input *bufio.Scanner) error {
	deadline := playNow().Add(session.Difficulty.RoundTime())
	for {
		if !input.Scan() {
			if err := input.Err(); err != nil {
				return err
			}
			session.Fail()
			return errQuit
		}
		answer := strings.TrimSpace(input.Text())
		switch answer {
		case "":
			continue
		case "quit":
			session.Fail()
			return errQuit
		case "skip":
			session.Fail()
			solution, ok, err := gen.Hint(cmd.Context(), seq.Digits)
			if err != nil {
				return err
			}
			if ok {
				printer.Info("One solution: %s\n", solution)
			} else {
				printer.Info("No solution found for %s\n", seq)
			}
			return nil
		}

		timeLeft := deadline.Sub(playNow())
		if timeLeft <= 0 {
			session.Fail()
			printer.Warning("Time is up\n")
			return nil
		}

		v, err := puzzle.Verify(seq, answer)
		switch {
		case err != nil:
			printer.Warning("%s\n", err)
		case !puzzle.Matches(v, seq.Target):
			printer.Warning("%s = %g, not %d\n", answer, v, seq.Target)
		default:
			out := session.Correct(timeLeft)
			if out.Bonus > 0 {
				printer.Success("+%d points (+%d streak bonus)\n", out.Points, out.Bonus)
			} else {
				printer.Success("+%d points\n", out.Points)
			}
			if out.LevelUp {
				printer.Info("Level %d reached\n", out.Level)
			}
			return nil
		}
	}
}
