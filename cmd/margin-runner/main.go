package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fbatools/margin-scraper/internal/calculator"
	"github.com/fbatools/margin-scraper/internal/config"
	"github.com/fbatools/margin-scraper/internal/jobs"
	"github.com/fbatools/margin-scraper/pkg/logger"
)

// margin-runner executes one extraction batch from the command line,
// without the API server or the run ledger.
func main() {
	_ = godotenv.Load()

	var (
		worksheet    = flag.String("worksheet", "", "worksheet to read ASINs from (default from SPREADSHEET_WORKSHEET)")
		marginColumn = flag.Int("column", 0, "column to write margins to (default from CALCULATOR_MARGIN_COLUMN)")
		headless     = flag.Bool("headless", true, "run the browser headless")
		cookieFile   = flag.String("cookies", "", "seller session cookie export (default from CALCULATOR_COOKIE_FILE)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.Browser.Headless = *headless
	if *cookieFile != "" {
		cfg.Calculator.CookieFile = *cookieFile
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	executor := jobs.NewBrowserExecutor(cfg, log, nil)

	hooks := jobs.Hooks{
		OnStart: func(total int) {
			log.Info("batch built", "identifiers", total)
		},
		OnOutcome: func(item calculator.Item, out calculator.Outcome) {
			switch out.Kind {
			case calculator.OutcomeSuccess:
				log.Info("margin extracted", "row", item.Row, "asin", item.ASIN, "margin", out.Margin)
			case calculator.OutcomeNoMargin:
				log.Warn("no margin found", "row", item.Row, "asin", item.ASIN)
			case calculator.OutcomeFailed:
				log.Error("extraction failed", "row", item.Row, "asin", item.ASIN, "error", out.Err)
			}
		},
	}

	summary, err := executor.Execute(ctx, *worksheet, *marginColumn, hooks)
	if err != nil {
		log.Error("batch aborted", "error", err)
		os.Exit(1)
	}

	log.Info("batch finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"no_margin", summary.NoMargin,
		"failed", summary.Failed)

	if summary.Failed > 0 {
		os.Exit(2)
	}
}
