package cmd

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/fxbot/broker/sim"
	"github.com/rustyeddy/fxbot/config"
	"github.com/rustyeddy/fxbot/engine"
	"github.com/rustyeddy/fxbot/exec"
	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/ledger"
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/risk"
	"github.com/rustyeddy/fxbot/signal"
	"github.com/rustyeddy/fxbot/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading core against the paper broker",
	Long: `Run the trading core with a simulated broker driving a random-walk
price feed. All decisions, fills and closes are recorded in the journal.

Example:
  fxbot run -f examples/configs/basic.yaml --duration 1h`,
	RunE: runRun,
}

var (
	runConfigPath string
	runDuration   time.Duration
	runStep       time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON); defaults apply when omitted")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	runCmd.Flags().DurationVar(&runStep, "step", time.Second, "simulated price step interval")
}

// seedPrices are starting quotes for the paper feed, roughly at recent
// market levels.
var seedPrices = map[string]float64{
	"EUR_USD": 1.0850,
	"GBP_USD": 1.2700,
	"USD_JPY": 148.50,
	"USD_CHF": 0.8800,
	"AUD_USD": 0.6550,
	"USD_CAD": 1.3600,
	"NZD_USD": 0.6100,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	fmt.Printf("Starting fxbot paper run\n")
	fmt.Printf("  Account:     $%.2f %s\n", cfg.Account.Balance, cfg.Account.Currency)
	fmt.Printf("  Instruments: %v\n", cfg.Instruments)
	fmt.Printf("  Strategies:  %d configured\n", len(cfg.Strategies))
	fmt.Println()

	var jour journal.Journal
	var err error
	if cfg.Journal.Type == "memory" {
		jour = journal.NewMemory()
	} else {
		jour, err = journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
	}
	defer jour.Close()

	broker := sim.New()
	now := time.Now()
	for _, instrument := range cfg.Instruments {
		price, ok := seedPrices[instrument]
		if !ok {
			price = 1.0
		}
		pip := 0.0001
		if market.Supported(instrument) {
			pip = pipSize(instrument)
		}
		broker.SetTick(market.Tick{
			Instrument: instrument,
			Time:       now,
			Bid:        price - pip/2,
			Ask:        price + pip/2,
		})
	}

	led := ledger.New(ledger.Account{
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
		Equity:   cfg.Account.Balance,
	}, cfg.Risk.MaxDailyLossPct, cfg.Engine.Pending(), jour)

	eval := strategies.NewEvaluator(signal.NewEngine(), cfg.BuildStrategies())
	gate := risk.NewGate(cfg.RiskPolicy())
	adp := exec.New(broker, exec.DefaultConfig())
	eng := engine.New(cfg, led, eval, gate, adp, broker, jour)

	ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error {
		ticker := time.NewTicker(runStep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case t := <-ticker.C:
				broker.Step(t)
			}
		}
	})

	err = g.Wait()

	st := eng.Status()
	fmt.Println()
	fmt.Printf("Run finished\n")
	fmt.Printf("  Balance:   $%.2f\n", st.Balance)
	fmt.Printf("  Equity:    $%.2f\n", st.Equity)
	fmt.Printf("  Daily P&L: $%.2f\n", st.DailyPnL)
	fmt.Printf("  Trades:    %d (win rate %.1f%%)\n", st.TotalTrades, 100*st.WinRate)
	if st.TradingHalted {
		fmt.Printf("  Halted:    %s\n", st.HaltReason)
	}

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func pipSize(instrument string) float64 {
	meta := market.Instruments[instrument]
	p := 1.0
	for i := 0; i > meta.PipLocation; i-- {
		p /= 10
	}
	return p
}
