package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fbatools/margin-scraper/internal/browser"
	"github.com/fbatools/margin-scraper/internal/calculator"
	"github.com/fbatools/margin-scraper/internal/config"
	"github.com/fbatools/margin-scraper/internal/metrics"
	"github.com/fbatools/margin-scraper/internal/retry"
	"github.com/fbatools/margin-scraper/internal/rowstore"
	"github.com/fbatools/margin-scraper/internal/session"
)

// BrowserExecutor runs one extraction batch end to end: it opens a fresh
// browser per run, loads the session cookies, builds the batch from the
// requested worksheet and drives the calculator.
type BrowserExecutor struct {
	calculator config.CalculatorConfig
	sheets     config.SheetsConfig
	browser    config.BrowserConfig
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewBrowserExecutor(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BrowserExecutor {
	return &BrowserExecutor{
		calculator: cfg.Calculator,
		sheets:     cfg.Sheets,
		browser:    cfg.Browser,
		logger:     logger.With("component", "executor"),
		metrics:    m,
	}
}

func (e *BrowserExecutor) Execute(ctx context.Context, worksheet string, marginColumn int, hooks Hooks) (Summary, error) {
	if worksheet == "" {
		worksheet = e.sheets.Worksheet
	}
	if marginColumn < 1 {
		marginColumn = e.calculator.MarginColumn
	}

	store, err := rowstore.NewSheetsStore(ctx, e.sheets.CredentialsFile, e.sheets.SpreadsheetID, worksheet)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open worksheet %q: %w", worksheet, err)
	}

	batch, err := calculator.BuildBatch(ctx, store)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to build batch: %w", err)
	}
	hooks.start(countProcessable(batch))

	b, err := browser.New(&browser.Options{
		Headless:       e.browser.Headless,
		Timeout:        e.browser.Timeout,
		UserAgent:      browser.DefaultOptions().UserAgent,
		ViewportWidth:  e.browser.ViewportWidth,
		ViewportHeight: e.browser.ViewportHeight,
		AcceptLanguage: e.browser.AcceptLanguage,
		TimezoneID:     e.browser.TimezoneID,
		Locale:         e.browser.Locale,
		ExtraHeaders:   browser.DefaultOptions().ExtraHeaders,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			e.logger.Error("failed to close browser", "error", closeErr)
		}
	}()

	if e.calculator.CookieFile != "" {
		if err := b.ApplyCookies(e.calculator.CookieFile); err != nil {
			return Summary{}, fmt.Errorf("failed to apply session cookies: %w", err)
		}
	}

	page, err := b.NewPage()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open page: %w", err)
	}

	driver := calculator.New(
		session.NewPageSession(page, e.logger),
		store,
		calculator.Config{
			URL:          e.calculator.URL,
			MarginColumn: marginColumn,
			Retry: retry.Policy{
				Attempts: e.calculator.RetryAttempts,
				Delay:    e.calculator.RetryDelay,
			},
			SettleWait:    e.calculator.SettleWait,
			InputWait:     e.calculator.InputWait,
			ExtractWait:   e.calculator.ExtractWait,
			SelectWait:    e.calculator.SelectWait,
			MaxAlternates: e.calculator.MaxAlternates,
		},
		e.logger,
		e.metrics,
	)

	results, runErr := driver.Run(ctx, batch)

	summary := Summary{Total: countProcessable(batch)}
	for _, res := range results {
		hooks.outcome(res.Item, res.Outcome)
		switch res.Outcome.Kind {
		case calculator.OutcomeSuccess:
			summary.Succeeded++
		case calculator.OutcomeNoMargin:
			summary.NoMargin++
		case calculator.OutcomeFailed:
			summary.Failed++
		}
	}

	return summary, runErr
}

func countProcessable(batch []calculator.Item) int {
	n := 0
	for _, item := range batch {
		if strings.TrimSpace(item.ASIN) != "" {
			n++
		}
	}
	return n
}
