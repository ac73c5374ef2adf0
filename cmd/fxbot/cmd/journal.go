package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxbot/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from the SQLite database.

Subcommands:
  trade   - Get details of a specific trade by ID
  today   - List trades closed today
  day     - List trades closed on a specific day
  events  - List recent lifecycle events

Examples:
  fxbot journal trade <trade-id>
  fxbot journal today
  fxbot journal day 2026-08-29
  fxbot journal events -n 50`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent lifecycle events",
	Args:  cobra.NoArgs,
	RunE:  runJournalEvents,
}

var (
	journalDBPath      string
	journalEventsLimit int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalEventsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./fxbot.sqlite", "path to SQLite journal DB")
	journalEventsCmd.Flags().IntVarP(&journalEventsLimit, "limit", "n", 20, "maximum events to list")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	printTrade(rec)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(time.Now().UTC())
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("parse day (want YYYY-MM-DD): %w", err)
	}
	return listDay(day)
}

func listDay(day time.Time) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	trades, err := j.ListTradesByDay(day)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Printf("No trades closed on %s\n", day.Format("2006-01-02"))
		return nil
	}

	var total float64
	for _, rec := range trades {
		printTrade(rec)
		total += rec.RealizedPL
	}
	fmt.Printf("\n%d trades, total P&L $%.2f\n", len(trades), total)
	return nil
}

func runJournalEvents(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	events, err := j.ListEvents(journalEventsLimit)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	for _, e := range events {
		fmt.Printf("%s  %-18s %-8s %-16s %s %s\n",
			e.Time.Format(time.RFC3339), e.Kind, e.Instrument, e.Strategy, e.Code, e.Detail)
	}
	return nil
}

func printTrade(rec journal.TradeRecord) {
	fmt.Printf("%s  %-8s %-16s %-5s %8.0f units  %.5f -> %.5f  P&L $%+.2f  (%s)\n",
		rec.CloseTime.Format(time.RFC3339), rec.Instrument, rec.Strategy,
		rec.Direction, rec.Units, rec.EntryPrice, rec.ExitPrice, rec.RealizedPL, rec.Reason)
}
