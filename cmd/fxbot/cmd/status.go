package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxbot/journal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest recorded account state",
	Long: `Show the most recent equity snapshot and lifecycle events from the
journal database.

Example:
  fxbot status -d ./fxbot.sqlite`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusDBPath string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusDBPath, "db", "d", "./fxbot.sqlite", "path to SQLite journal DB")
}

func runStatus(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(statusDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	snap, err := j.LatestEquity()
	if err != nil {
		return err
	}

	fmt.Printf("As of %s\n", snap.Time.Format(time.RFC3339))
	fmt.Printf("  Balance:        $%.2f\n", snap.Balance)
	fmt.Printf("  Equity:         $%.2f\n", snap.Equity)
	fmt.Printf("  Daily P&L:      $%.2f\n", snap.DailyPnL)
	fmt.Printf("  Open positions: %d\n", snap.OpenPositions)
	fmt.Printf("  Total trades:   %d (win rate %.1f%%)\n", snap.TotalTrades, 100*snap.WinRate)

	events, err := j.ListEvents(5)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if len(events) > 0 {
		fmt.Println("\nRecent events:")
		for _, e := range events {
			fmt.Printf("  %s  %-18s %-8s %s %s\n",
				e.Time.Format(time.RFC3339), e.Kind, e.Instrument, e.Code, e.Detail)
		}
	}
	return nil
}
