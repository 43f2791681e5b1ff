package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/svandell/allokera/internal/backtest"
	"github.com/svandell/allokera/internal/commission"
	"github.com/svandell/allokera/internal/config"
	"github.com/svandell/allokera/internal/logger"
	"github.com/svandell/allokera/internal/market"
	"github.com/svandell/allokera/internal/metric"
	"github.com/svandell/allokera/internal/portfolio"
	"github.com/svandell/allokera/internal/report"
	"github.com/svandell/allokera/internal/store"
	"github.com/svandell/allokera/internal/strategy"
	"github.com/svandell/allokera/internal/strategy/rebalance"
	"github.com/svandell/allokera/internal/telemetry"
	"go.uber.org/zap"
)

var (
	backtestFrom string
	backtestTo   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest from a config file",
	Long:  "Replay the configured market data against the portfolio and strategy, then report performance metrics",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (overrides config)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (overrides config)")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file required (use --config)")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if backtestFrom != "" {
		cfg.Backtest.StartDate = backtestFrom
	}
	if backtestTo != "" {
		cfg.Backtest.EndDate = backtestTo
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := market.Load(cfg.Market.Path, cfg.Market.FillMethod, log)
	if err != nil {
		return err
	}

	// Unset dates default to the table's full range.
	startDate := cfg.Backtest.StartDate
	if startDate == "" {
		startDate = table.DateAt(0)
	}
	endDate := cfg.Backtest.EndDate
	if endDate == "" {
		endDate = table.DateAt(table.Len() - 1)
	}

	pf, err := portfolio.New(startDate, portfolio.Settings{
		ID:               cfg.Portfolio.ID,
		Currency:         cfg.Portfolio.Currency,
		InitCash:         cfg.Portfolio.InitCash,
		Benchmark:        cfg.Portfolio.Benchmark,
		CommissionScheme: cfg.Portfolio.CommissionScheme,
	}, commission.NewRegistry(), log)
	if err != nil {
		return err
	}

	strat, err := buildStrategy(cfg, log)
	if err != nil {
		return err
	}

	tel := telemetry.NewRegistry()
	calc := metric.NewCalculator(metric.Config{
		RollingSharpeWindow: cfg.Metric.RollingSharpeWindow,
		RollingBetaWindow:   cfg.Metric.RollingBetaWindow,
		Annualization:       cfg.Metric.Annualization,
		VarianceFloor:       metric.Defaults().VarianceFloor,
	}, tel, log)

	bt, err := backtest.New(table, pf, strat, calc, tel, log, startDate, endDate)
	if err != nil {
		return err
	}

	records, err := bt.Run(ctx)
	if err != nil {
		return err
	}
	tel.LogSummary(log)

	runID := uuid.NewString()
	if err := persistRun(cmd, cfg, log, runID, pf, records, startDate, endDate); err != nil {
		return err
	}

	printSummary(runID, records)
	return nil
}

func buildStrategy(cfg *config.Config, log *zap.Logger) (strategy.Strategy, error) {
	switch cfg.Strategy.Type {
	case "", "none":
		return nil, nil
	case "rebalance":
		return rebalance.New(rebalance.Period(cfg.Strategy.Period), cfg.Strategy.Weights, log)
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Strategy.Type)
	}
}

func persistRun(cmd *cobra.Command, cfg *config.Config, log *zap.Logger, runID string, pf *portfolio.Portfolio, records *metric.Records, startDate, endDate string) error {
	if cfg.Store.Enabled {
		db, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		run := store.Run{
			ID:          runID,
			PortfolioID: pf.ID,
			Benchmark:   pf.Benchmark,
			StartDate:   startDate,
			EndDate:     endDate,
			InitCash:    pf.InitCash,
			FinalValue:  pf.TotalMarketValue(),
			CAGR:        records.CAGR,
			MaxDrawdown: records.MaxDrawdown,
			Sortino:     records.Sortino,
		}
		if err := db.SaveRun(cmd.Context(), run, pf.History, pf.Transactions); err != nil {
			return err
		}
		log.Info("run stored", zap.String("run", runID), zap.String("path", cfg.Store.Path))
	}

	if cfg.Report.Enabled {
		var archive report.Storage
		var err error
		switch cfg.Report.Type {
		case "s3":
			archive, err = report.NewS3(report.S3Options{
				Bucket:    cfg.Report.S3.Bucket,
				Endpoint:  cfg.Report.S3.Endpoint,
				Region:    cfg.Report.S3.Region,
				AccessKey: cfg.Report.S3.AccessKey,
				SecretKey: cfg.Report.S3.SecretKey,
				Prefix:    cfg.Report.S3.Prefix,
			})
		default:
			archive, err = report.NewLocalFS(cfg.Report.Path)
		}
		if err != nil {
			return err
		}
		if err := report.NewWriter(archive, log).Publish(cmd.Context(), runID, records); err != nil {
			return err
		}
	}

	return nil
}

func printSummary(runID string, records *metric.Records) {
	last := records.Rows[len(records.Rows)-1]

	fmt.Println("=== Allokera Backtest ===")
	fmt.Printf("Run:        %s\n", runID)
	fmt.Printf("Portfolio:  %s\n", records.PortfolioID)
	if records.Benchmark != "" {
		fmt.Printf("Benchmark:  %s\n", records.Benchmark)
	}
	fmt.Printf("Period:     %s to %s (%d trading days)\n", records.Rows[0].Date, last.Date, len(records.Rows))
	fmt.Println()
	fmt.Printf("Final value:      %.2f\n", last.TotalMarketValue)
	fmt.Printf("Cumulative:       %.2f %%\n", last.CumReturn)
	fmt.Printf("CAGR:             %.2f %%\n", records.CAGR)
	fmt.Printf("Max drawdown:     %.2f %% (%d days)\n", records.MaxDrawdown, records.MaxDrawdownDuration)
	fmt.Printf("Sortino:          %.2f\n", records.Sortino)
}
