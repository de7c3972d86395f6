package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrBlocked    = errors.New("blocked by anti-bot response")
	ErrBadStatus  = errors.New("unexpected response status")
	ErrNoListings = errors.New("no listings found")
)

// Listing is one product card from a search results page.
type Listing struct {
	ASIN    string
	Title   string
	Price   string
	URL     string
	Rating  string
	Reviews int
	Prime   bool
}

type Options struct {
	BaseURL    string
	UserAgents []string
	DelayMin   time.Duration
	DelayMax   time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		BaseURL:  "https://www.amazon.co.uk",
		DelayMin: 2 * time.Second,
		DelayMax: 5 * time.Second,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		},
	}
}

// Scraper fetches search results pages over plain HTTP and parses listing
// cards out of the markup. No browser is involved on this path.
type Scraper struct {
	client *http.Client
	opts   *Options
	logger *slog.Logger
	last   time.Time
}

func NewScraper(client *http.Client, opts *Options, logger *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Scraper{
		client: client,
		opts:   opts,
		logger: logger.With("component", "search"),
	}
}

// Search fetches one results page for query and returns its listings in
// page order.
func (s *Scraper) Search(ctx context.Context, query string, page int) ([]Listing, error) {
	searchURL := fmt.Sprintf("%s/s?k=%s&ref=nb_sb_noss", s.opts.BaseURL, url.QueryEscape(query))
	if page > 1 {
		searchURL += fmt.Sprintf("&page=%d", page)
	}

	if err := s.pause(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("fetching search results", "query", query, "page", page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp")
	req.Header.Set("DNT", "1")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", searchURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %d", ErrBlocked, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	listings := s.parseListings(doc)
	if len(listings) == 0 {
		return nil, ErrNoListings
	}

	s.logger.Info("parsed listings", "query", query, "count", len(listings))
	return listings, nil
}

func (s *Scraper) parseListings(doc *goquery.Document) []Listing {
	var listings []Listing

	doc.Find("div[data-asin]").Each(func(_ int, item *goquery.Selection) {
		asin := strings.TrimSpace(item.AttrOr("data-asin", ""))
		if asin == "" {
			return
		}

		title := strings.TrimSpace(item.Find("span.a-text-normal").First().Text())

		price := strings.TrimSpace(item.Find("span.a-price-whole").First().Text())
		if price == "" {
			price = strings.TrimSpace(item.Find("span.a-offscreen").First().Text())
		}

		productURL := ""
		if href, ok := item.Find("a.a-link-normal").First().Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				productURL = s.opts.BaseURL + href
			} else {
				productURL = href
			}
		}

		rating := strings.TrimSpace(item.Find("span.a-icon-alt").First().Text())
		prime := item.Find("i.a-icon-prime").Length() > 0
		reviews := parseReviewCount(item.Find("span.a-size-base").First().Text())

		listings = append(listings, Listing{
			ASIN:    asin,
			Title:   title,
			Price:   price,
			URL:     productURL,
			Rating:  rating,
			Reviews: reviews,
			Prime:   prime,
		})
	})

	return listings
}

func parseReviewCount(raw string) int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

// pause sleeps a randomized interval since the previous request.
func (s *Scraper) pause(ctx context.Context) error {
	if s.last.IsZero() {
		s.last = time.Now()
		return nil
	}

	delay := s.opts.DelayMin
	if s.opts.DelayMax > s.opts.DelayMin {
		delay += time.Duration(rand.Int63n(int64(s.opts.DelayMax - s.opts.DelayMin)))
	}

	elapsed := time.Since(s.last)
	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	s.last = time.Now()
	return nil
}

func (s *Scraper) userAgent() string {
	if len(s.opts.UserAgents) == 0 {
		return DefaultOptions().UserAgents[0]
	}
	return s.opts.UserAgents[rand.Intn(len(s.opts.UserAgents))]
}

// Row flattens a listing into the column layout used by the results
// worksheet.
func (l Listing) Row() []string {
	return []string{
		l.ASIN,
		l.Title,
		l.Price,
		l.Rating,
		strconv.Itoa(l.Reviews),
		strconv.FormatBool(l.Prime),
		l.URL,
	}
}
