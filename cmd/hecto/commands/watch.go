package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/duel"
	"github.com/dyluth/hecto/internal/logging"
	"github.com/dyluth/hecto/internal/printer"
	"github.com/dyluth/hecto/pkg/channel"
)

var (
	watchRedisURL  string
	watchNamespace string
	watchVariant   string
	watchOutput    string
)

var watchCmd = &cobra.Command{
	Use:   "watch <gameId>",
	Short: "Follow a match in real time",
	Long: `Subscribe to a match channel and print every event as it arrives,
until the match ends or you press Ctrl-C.

Output Formats:
  default - Human-readable lines with timestamps
  json    - Line-delimited event envelopes for programmatic processing

Examples:
  hecto watch k3x9q2
  hecto watch k3x9q2 --redis-url redis://localhost:6379 --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRedisURL, "redis-url", "", "Redis URL (default $HECTO_REDIS_URL or redis://localhost:6379)")
	watchCmd.Flags().StringVar(&watchNamespace, "namespace", duel.DefaultNamespace, "Channel namespace")
	watchCmd.Flags().StringVar(&watchVariant, "variant", string(duel.PuzzleDuel), "Match variant (puzzle-duel or turn-based)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	matchID := args[0]
	if err := validateOutput(watchOutput, "default", "json"); err != nil {
		return err
	}
	variant, err := duel.ParseVariant(watchVariant)
	if err != nil {
		return printer.Error("invalid variant", err.Error(), nil)
	}

	url := watchRedisURL
	if url == "" {
		url = os.Getenv("HECTO_REDIS_URL")
	}
	if url == "" {
		url = "redis://localhost:6379"
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker, err := channel.NewBrokerFromURL(url,
		channel.WithBrokerLogger(logging.Discard()),
		channel.WithConnectTimeout(3*time.Second))
	if err != nil {
		return printer.Error("invalid Redis URL", err.Error(), nil)
	}
	defer broker.Close()

	if err := broker.Connect(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", url),
			nil,
			[]string{"Check that Redis is running and --redis-url is correct"},
		)
	}

	out := cmd.OutOrStdout()
	ended := make(chan struct{})
	var once sync.Once

	replica := duel.NewReplica(matchID, variant, duel.OnChange(func(v duel.View, env *channel.Envelope) {
		if watchOutput == "json" {
			data, err := env.Encode()
			if err == nil {
				fmt.Fprintf(out, "%s\n", data)
			}
		} else {
			printEvent(out, v, env)
		}
		if v.Ended {
			once.Do(func() { close(ended) })
		}
	}))
	if err := replica.Follow(ctx, broker, channel.Name(watchNamespace, matchID)); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer replica.Close()

	if watchOutput != "json" {
		printer.Step("watching %s (Ctrl-C to stop)\n", matchID)
	}

	select {
	case <-ended:
	case <-replica.Done():
	case <-ctx.Done():
	}
	return nil
}

// printEvent renders one applied event as a single human-readable line.
func printEvent(w io.Writer, v duel.View, env *channel.Envelope) {
	ts := env.Timestamp.Local().Format("15:04:05")
	var detail string
	switch ev := env.Event.(type) {
	case channel.PlayerJoin:
		detail = fmt.Sprintf("%s joined", ev.PlayerID)
	case channel.StartGame:
		detail = fmt.Sprintf("started: %s", strings.Join(ev.Players, " vs "))
	case channel.PlayerMove:
		detail = fmt.Sprintf("%s moved %s", ev.PlayerID, string(ev.Move))
		if v.TurnHolder != "" {
			detail += fmt.Sprintf(" (next: %s)", v.TurnHolder)
		}
	case channel.PlayerLeave:
		detail = fmt.Sprintf("%s left", ev.PlayerID)
	case channel.GameEnd:
		winner := ev.Winner
		if winner == "" {
			winner = "nobody"
		}
		detail = fmt.Sprintf("ended (%s), winner: %s", ev.Reason, winner)
		if ev.Points > 0 {
			detail += fmt.Sprintf(", %d points", ev.Points)
		}
	case channel.SpectatorJoin:
		detail = fmt.Sprintf("%s is watching (%d)", ev.SpectatorID, len(v.Spectators))
	case channel.SpectatorLeave:
		detail = fmt.Sprintf("%s stopped watching", ev.SpectatorID)
	}
	fmt.Fprintf(w, "[%s] #%d %-15s %s\n", ts, env.Seq, env.Type, detail)
}
