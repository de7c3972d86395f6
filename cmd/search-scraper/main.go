package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fbatools/margin-scraper/internal/config"
	"github.com/fbatools/margin-scraper/internal/rowstore"
	"github.com/fbatools/margin-scraper/internal/search"
	"github.com/fbatools/margin-scraper/pkg/logger"
)

// search-scraper discovers ASINs from search results pages and appends
// them to a worksheet, ready for a margin extraction run.
func main() {
	_ = godotenv.Load()

	var (
		query     = flag.String("query", "", "search query (required)")
		pages     = flag.Int("pages", 1, "number of results pages to fetch")
		worksheet = flag.String("worksheet", "", "worksheet to append listings to (prints to stdout when empty)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if *query == "" {
		log.Error("-query is required")
		os.Exit(1)
	}
	if *pages < 1 {
		*pages = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	var appender rowstore.Appender
	if *worksheet != "" {
		store, err := rowstore.NewSheetsStore(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, *worksheet)
		if err != nil {
			log.Error("failed to open worksheet", "worksheet", *worksheet, "error", err)
			os.Exit(1)
		}
		appender = store
	}

	scraper := search.NewScraper(nil, &search.Options{
		BaseURL:    cfg.Search.BaseURL,
		UserAgents: cfg.Search.UserAgents,
		DelayMin:   cfg.Search.DelayMin,
		DelayMax:   cfg.Search.DelayMax,
	}, log)

	total := 0
	for page := 1; page <= *pages; page++ {
		listings, err := scraper.Search(ctx, *query, page)
		if err != nil {
			if errors.Is(err, search.ErrNoListings) {
				log.Info("no more listings", "page", page)
				break
			}
			log.Error("search failed", "page", page, "error", err)
			os.Exit(1)
		}

		for _, listing := range listings {
			if appender != nil {
				if err := appender.AppendRow(ctx, listing.Row()); err != nil {
					log.Error("failed to append listing", "asin", listing.ASIN, "error", err)
					os.Exit(1)
				}
			} else {
				fmt.Println(strings.Join(listing.Row(), "\t"))
			}
		}
		total += len(listings)
	}

	log.Info("search finished", "query", *query, "listings", total)
}
