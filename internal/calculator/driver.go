package calculator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fbatools/margin-scraper/internal/metrics"
	"github.com/fbatools/margin-scraper/internal/retry"
	"github.com/fbatools/margin-scraper/internal/rowstore"
	"github.com/fbatools/margin-scraper/internal/session"
)

// ErrConsentGate is returned when the guest-consent gate cannot be
// cleared. The calculator is unusable behind it, so the whole batch
// aborts rather than failing identifier by identifier.
var ErrConsentGate = errors.New("consent gate unreachable")

// Calculator UI selectors. The kat-* elements are custom components whose
// interactive parts live behind shadow roots.
const (
	continueButtonSelector = `[data-testid="continue-btn"]`
	searchInputHost        = `kat-input[data-testid="product-search-input"]`
	searchInputInner       = `input`
	searchButtonHost       = `kat-button[data-testid="product-search-button"]`
	searchButtonInner      = `button.button[type="submit"]`
	resultLabelSelector    = `kat-label`
	searchAnotherSelector  = `[data-testid="search-another-product-btn"]`
	selectProductSelector  = `[data-testid="select-product-btn"]`
)

const failedMatchText = "Failed to get product match"

const alertDescriptionScript = `() => {
	const alert = document.querySelector('kat-alert[data-testid="alert-component"]');
	if (!alert) return '';
	const description = alert.getAttribute('description');
	return description ? description.trim() : '';
}`

const marginValuesScript = `() => {
	const results = [];
	for (const label of document.querySelectorAll('kat-label')) {
		const root = label.shadowRoot;
		if (!root) continue;
		const span = root.querySelector('span[part="label-text"]');
		if (span && span.textContent.includes('%')) {
			results.push(span.textContent.trim());
		}
	}
	return results;
}`

const warningPresentScript = `() => document.querySelector('[data-testid="alert-component"]') !== null`

// Config tunes the driver. Zero values fall back to the timings the
// calculator UI is known to need.
type Config struct {
	URL          string
	MarginColumn int
	Retry        retry.Policy

	// SettleWait is how long the result or failure UI gets to render
	// after a search submit.
	SettleWait time.Duration
	// InputWait precedes each shadow lookup of the search input.
	InputWait time.Duration
	// ExtractWait bounds the wait for result labels; timing out is a
	// no-margin outcome, not a fault.
	ExtractWait time.Duration
	// SelectWait follows each click in the alternate-selection flow.
	SelectWait time.Duration
	// MaxAlternates bounds the select/warning loop. Exhaustion is a
	// Failed outcome.
	MaxAlternates int
}

func (c Config) withDefaults() Config {
	if c.MarginColumn < 1 {
		c.MarginColumn = 3
	}
	if c.Retry.Attempts < 1 {
		c.Retry.Attempts = 3
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = 2 * time.Second
	}
	if c.SettleWait <= 0 {
		c.SettleWait = 7 * time.Second
	}
	if c.InputWait <= 0 {
		c.InputWait = 5 * time.Second
	}
	if c.ExtractWait <= 0 {
		c.ExtractWait = 15 * time.Second
	}
	if c.SelectWait <= 0 {
		c.SelectWait = 5 * time.Second
	}
	if c.MaxAlternates < 1 {
		c.MaxAlternates = 5
	}
	return c
}

// Result pairs a batch item with its terminal outcome.
type Result struct {
	Item    Item
	Outcome Outcome
}

// Driver converts identifiers into extraction outcomes by walking the
// calculator UI through a fixed phase sequence, one identifier at a time
// on a single shared session.
type Driver struct {
	session session.Session
	store   rowstore.Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(sess session.Session, store rowstore.Store, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Driver {
	d := &Driver{
		session: sess,
		store:   store,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "calculator"),
		metrics: m,
	}
	if d.cfg.Retry.OnRetry == nil {
		d.cfg.Retry.OnRetry = func(attempt int, err error) {
			d.logger.Debug("retrying ui step", "attempt", attempt, "error", err)
			d.metrics.IncRetries()
		}
	}
	return d
}

// Run processes the batch strictly in order. Identifiers that are empty
// after trimming are skipped outright. Each identifier's write happens
// before the next identifier's page reset. The returned error is non-nil
// only for fatal aborts (consent gate exhaustion or a failed reset), in
// which case the remaining batch is not processed; per-identifier faults
// are isolated into their Result.
func (d *Driver) Run(ctx context.Context, batch []Item) ([]Result, error) {
	if err := d.reset(ctx); err != nil {
		return nil, fmt.Errorf("opening calculator: %w", err)
	}

	results := make([]Result, 0, len(batch))
	for _, item := range batch {
		asin := strings.TrimSpace(item.ASIN)
		if asin == "" {
			continue
		}

		d.logger.Info("processing asin", "asin", asin, "row", item.Row)
		started := time.Now()

		outcome := d.extract(ctx, asin)
		d.metrics.ObserveExtraction(time.Since(started))
		d.metrics.IncOutcome(outcome.Kind.String())
		d.record(ctx, item, asin, outcome)
		results = append(results, Result{Item: item, Outcome: outcome})

		// Full page reload before the next identifier so no UI state
		// leaks between searches.
		if err := d.reset(ctx); err != nil {
			return results, fmt.Errorf("resetting calculator: %w", err)
		}
	}

	return results, nil
}

// reset loads the calculator entry page and clears the guest-consent
// gate. Failure here is fatal for the batch.
func (d *Driver) reset(ctx context.Context) error {
	if err := retry.Do(ctx, d.cfg.Retry, func(ctx context.Context) error {
		return d.session.Navigate(ctx, d.cfg.URL)
	}); err != nil {
		return fmt.Errorf("loading calculator page: %w", err)
	}

	if err := retry.Do(ctx, d.cfg.Retry, func(ctx context.Context) error {
		gate, err := d.session.Find(continueButtonSelector, d.cfg.ExtractWait)
		if err != nil {
			return err
		}
		if err := gate.Click(); err != nil {
			return err
		}
		d.session.WaitTimeout(d.cfg.InputWait)
		return nil
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrConsentGate, err)
	}

	return nil
}

// extract walks one identifier from input to a terminal outcome. Any
// unexpected fault is contained here so one bad identifier never takes
// down the batch.
func (d *Driver) extract(ctx context.Context, asin string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("unexpected fault processing %s: %v", asin, r))
		}
	}()

	input, err := retry.Value(ctx, d.cfg.Retry, func(context.Context) (session.Element, error) {
		d.session.WaitTimeout(d.cfg.InputWait)
		return d.session.FindInShadow(searchInputHost, searchInputInner)
	})
	if err != nil {
		return failed(fmt.Errorf("asin input not found: %w", err))
	}

	if err := input.Fill(""); err != nil {
		return failed(fmt.Errorf("clearing asin input: %w", err))
	}
	if err := input.Fill(asin); err != nil {
		return failed(fmt.Errorf("filling asin input: %w", err))
	}
	d.session.WaitTimeout(time.Second)

	if err := d.submitSearch(ctx); err != nil {
		return failed(err)
	}

	// The calculator sporadically reports "Failed to get product match"
	// for ASINs it does know; resubmitting usually clears it. After the
	// attempt budget we fall through to extraction regardless.
	for attempt := 1; attempt < d.cfg.Retry.Attempts; attempt++ {
		matchFailed, err := d.matchFailed()
		if err != nil || !matchFailed {
			break
		}
		d.logger.Warn("product match failed, retrying search", "asin", asin, "attempt", attempt)
		if err := d.submitSearch(ctx); err != nil {
			return failed(err)
		}
	}

	margins, err := d.readMargins()
	if err != nil {
		return failed(fmt.Errorf("extracting margins: %w", err))
	}
	if margin, ok := FirstValidMargin(margins); ok {
		return succeeded(margin)
	}

	warning, err := d.warningPresent()
	if err != nil {
		return failed(fmt.Errorf("checking warning indicator: %w", err))
	}
	if !warning {
		return noMargin()
	}

	return d.selectAlternate(ctx, asin)
}

// submitSearch clicks the shadow-scoped search button and waits for the
// result or failure UI to render.
func (d *Driver) submitSearch(ctx context.Context) error {
	button, err := retry.Value(ctx, d.cfg.Retry, func(context.Context) (session.Element, error) {
		return d.session.FindInShadow(searchButtonHost, searchButtonInner)
	})
	if err != nil {
		return fmt.Errorf("search button not found: %w", err)
	}

	if err := button.Click(); err != nil {
		return fmt.Errorf("clicking search button: %w", err)
	}

	d.session.WaitTimeout(d.cfg.SettleWait)
	return nil
}

func (d *Driver) matchFailed() (bool, error) {
	value, err := d.session.Evaluate(alertDescriptionScript)
	if err != nil {
		return false, err
	}
	description, _ := value.(string)
	return strings.Contains(description, failedMatchText), nil
}

// readMargins waits for result labels and returns every shadow-scoped
// label text containing '%', in document order. A missing label section
// is an empty result, not an error.
func (d *Driver) readMargins() ([]string, error) {
	if err := d.session.WaitForSelector(resultLabelSelector, d.cfg.ExtractWait); err != nil {
		return nil, nil
	}

	value, err := d.session.Evaluate(marginValuesScript)
	if err != nil {
		return nil, err
	}
	return toStrings(value), nil
}

func (d *Driver) warningPresent() (bool, error) {
	value, err := d.session.Evaluate(warningPresentScript)
	if err != nil {
		return false, err
	}
	present, _ := value.(bool)
	return present, nil
}

// selectAlternate handles the no-result path: ask the calculator for
// another candidate product and keep selecting candidates until one comes
// up without a warning indicator, then extract once. The loop is bounded;
// exhausting it is a failure rather than spinning on a UI that never
// settles.
func (d *Driver) selectAlternate(ctx context.Context, asin string) Outcome {
	d.logger.Warn("no margin on primary match, trying alternate products", "asin", asin)

	if outcome, ok := d.clickSearchAnother(); !ok {
		return outcome
	}

	for i := 0; i < d.cfg.MaxAlternates; i++ {
		if err := ctx.Err(); err != nil {
			return failed(err)
		}

		selectButton, err := d.session.Find(selectProductSelector, d.cfg.ExtractWait)
		if err != nil {
			d.logger.Warn("no further candidate products offered", "asin", asin)
			return noMargin()
		}
		if err := selectButton.Click(); err != nil {
			return failed(fmt.Errorf("clicking select: %w", err))
		}
		d.session.WaitTimeout(d.cfg.SelectWait)

		warning, err := d.warningPresent()
		if err != nil {
			return failed(fmt.Errorf("checking warning indicator: %w", err))
		}
		if !warning {
			margins, err := d.readMargins()
			if err != nil {
				return failed(fmt.Errorf("extracting margins after select: %w", err))
			}
			if margin, ok := FirstValidMargin(margins); ok {
				return succeeded(margin)
			}
			return noMargin()
		}

		if outcome, ok := d.clickSearchAnother(); !ok {
			return outcome
		}
	}

	return failed(fmt.Errorf("alternate selection exhausted after %d candidates", d.cfg.MaxAlternates))
}

// clickSearchAnother clicks the "search another product" control. The
// second return value is false when the flow should stop with the given
// outcome.
func (d *Driver) clickSearchAnother() (Outcome, bool) {
	button, err := d.session.Find(searchAnotherSelector, d.cfg.ExtractWait)
	if err != nil {
		return noMargin(), false
	}
	if err := button.Click(); err != nil {
		return failed(fmt.Errorf("clicking search another product: %w", err)), false
	}
	d.session.WaitTimeout(d.cfg.SelectWait)
	return Outcome{}, true
}

// record logs the outcome and persists successes. A failed write is
// logged and isolated like any other per-identifier fault.
func (d *Driver) record(ctx context.Context, item Item, asin string, outcome Outcome) {
	switch outcome.Kind {
	case OutcomeSuccess:
		d.logger.Info("net profit margin extracted",
			"asin", asin, "row", item.Row, "margin", outcome.Margin)
		if err := d.store.WriteCell(ctx, item.Row, d.cfg.MarginColumn, outcome.Margin); err != nil {
			d.logger.Error("failed to write margin",
				"asin", asin, "row", item.Row, "error", err)
			return
		}
		d.metrics.IncCellWrite()
	case OutcomeNoMargin:
		d.logger.Warn("no margin found", "asin", asin, "row", item.Row)
	case OutcomeFailed:
		d.logger.Error("extraction failed", "asin", asin, "row", item.Row, "error", outcome.Err)
	}
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
