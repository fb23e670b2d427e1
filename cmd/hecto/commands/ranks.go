package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/scoring"
)

var ranksOutput string

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "Show the rank ladder",
	Long: `Show every rank tier and the rating range it covers. Ratings start at
1000, move +25 per win and -15 per loss, and never drop below 1000.`,
	Args: cobra.NoArgs,
	RunE: runRanks,
}

func init() {
	ranksCmd.Flags().StringVarP(&ranksOutput, "output", "o", "table", "Output format (table or json)")
	rootCmd.AddCommand(ranksCmd)
}

func runRanks(cmd *cobra.Command, args []string) error {
	if err := validateOutput(ranksOutput, "table", "json"); err != nil {
		return err
	}
	if ranksOutput == "json" {
		return writeRanksJSON(cmd.OutOrStdout())
	}
	return writeRanksTable(cmd.OutOrStdout())
}

func writeRanksJSON(w io.Writer) error {
	data, err := json.MarshalIndent(scoring.Ladder(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeRanksTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Rank", "Min rating", "Max rating")
	for _, tier := range scoring.Ladder() {
		upper := "-"
		if tier.MaxRating > 0 {
			upper = strconv.Itoa(tier.MaxRating)
		}
		if err := table.Append([]string{strconv.Itoa(tier.Index + 1), tier.Name, strconv.Itoa(tier.MinRating), upper}); err != nil {
			return err
		}
	}
	return table.Render()
}
