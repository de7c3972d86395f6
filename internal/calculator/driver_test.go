package calculator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbatools/margin-scraper/internal/retry"
	"github.com/fbatools/margin-scraper/internal/rowstore"
	"github.com/fbatools/margin-scraper/internal/session"
)

type fakeElement struct {
	fills  []string
	clicks int
}

func (e *fakeElement) Fill(text string) error {
	e.fills = append(e.fills, text)
	return nil
}

func (e *fakeElement) Click() error {
	e.clicks++
	return nil
}

// fakeSession scripts the calculator UI. Margin batches and warning
// flags are consumed one per evaluation; the last entry repeats.
type fakeSession struct {
	navigations     int
	consentFailures int
	consent         fakeElement
	input           fakeElement
	searchButton    fakeElement
	searchAnother   fakeElement
	selectButton    fakeElement
	selectsOffered  int
	matchFailures   int
	marginBatches   [][]string
	warnings        []bool
	labelsMissing   bool
}

func (s *fakeSession) Navigate(_ context.Context, _ string) error {
	s.navigations++
	return nil
}

func (s *fakeSession) Find(selector string, _ time.Duration) (session.Element, error) {
	switch selector {
	case continueButtonSelector:
		if s.consentFailures > 0 {
			s.consentFailures--
			return nil, session.ErrNotFound
		}
		return &s.consent, nil
	case searchAnotherSelector:
		return &s.searchAnother, nil
	case selectProductSelector:
		if s.selectsOffered <= 0 {
			return nil, session.ErrNotFound
		}
		s.selectsOffered--
		return &s.selectButton, nil
	}
	return nil, session.ErrNotFound
}

func (s *fakeSession) FindInShadow(hostSelector, _ string) (session.Element, error) {
	switch hostSelector {
	case searchInputHost:
		return &s.input, nil
	case searchButtonHost:
		return &s.searchButton, nil
	}
	return nil, session.ErrNotFound
}

func (s *fakeSession) Evaluate(script string) (any, error) {
	switch script {
	case alertDescriptionScript:
		if s.matchFailures > 0 {
			s.matchFailures--
			return "Failed to get product match for the requested ASIN", nil
		}
		return "", nil
	case marginValuesScript:
		return anySlice(s.nextMargins()), nil
	case warningPresentScript:
		return s.nextWarning(), nil
	}
	return nil, nil
}

func (s *fakeSession) WaitTimeout(time.Duration) {}

func (s *fakeSession) WaitForSelector(_ string, _ time.Duration) error {
	if s.labelsMissing {
		return session.ErrNotFound
	}
	return nil
}

func (s *fakeSession) nextMargins() []string {
	if len(s.marginBatches) == 0 {
		return nil
	}
	batch := s.marginBatches[0]
	if len(s.marginBatches) > 1 {
		s.marginBatches = s.marginBatches[1:]
	}
	return batch
}

func (s *fakeSession) nextWarning() bool {
	if len(s.warnings) == 0 {
		return false
	}
	warning := s.warnings[0]
	if len(s.warnings) > 1 {
		s.warnings = s.warnings[1:]
	}
	return warning
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		URL:          "https://calculator.test/entry",
		MarginColumn: 3,
		Retry:        retry.Policy{Attempts: 3, Delay: time.Millisecond},
	}
}

func TestRunExtractsFirstValidMargin(t *testing.T) {
	sess := &fakeSession{marginBatches: [][]string{{"12.5%", "abc%"}}}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 2, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeSuccess, results[0].Outcome.Kind)
	assert.Equal(t, "12.5%", results[0].Outcome.Margin)

	written, ok := store.Cell(2, 3)
	require.True(t, ok)
	assert.Equal(t, "12.5%", written)

	assert.Equal(t, []string{"", "B01ABC1234"}, sess.input.fills)
}

func TestRunAbortsWhenConsentGateUnreachable(t *testing.T) {
	sess := &fakeSession{consentFailures: 3}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{
		{Row: 1, ASIN: "B01ABC1234"},
		{Row: 2, ASIN: "B09XYZ9876"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConsentGate)
	assert.Empty(t, results)
	assert.Equal(t, 0, store.WriteCount())
	assert.Equal(t, 0, sess.searchButton.clicks)
}

func TestRunRetriesSearchOnFailedProductMatch(t *testing.T) {
	sess := &fakeSession{
		matchFailures: 2,
		marginBatches: [][]string{{"18%"}},
	}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 1, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Initial submit plus one resubmit per reported match failure.
	assert.Equal(t, 3, sess.searchButton.clicks)
	assert.Equal(t, OutcomeSuccess, results[0].Outcome.Kind)
	assert.Equal(t, "18%", results[0].Outcome.Margin)
}

func TestRunSkipsBlankIdentifiers(t *testing.T) {
	sess := &fakeSession{marginBatches: [][]string{{"12.5%"}}}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 1, ASIN: "   "}})
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 0, store.WriteCount())
	// Only the initial page load; a skipped identifier triggers no reset.
	assert.Equal(t, 1, sess.navigations)
	assert.Equal(t, 0, sess.searchButton.clicks)
}

func TestRunNoMarginWithoutWarningIsSoft(t *testing.T) {
	sess := &fakeSession{
		marginBatches: [][]string{{}},
		warnings:      []bool{false},
	}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 1, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeNoMargin, results[0].Outcome.Kind)
	assert.Equal(t, 0, store.WriteCount())
}

func TestRunSelectsAlternateProduct(t *testing.T) {
	sess := &fakeSession{
		marginBatches:  [][]string{{}, {"38%"}},
		warnings:       []bool{true, false},
		selectsOffered: 1,
	}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 5, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeSuccess, results[0].Outcome.Kind)
	assert.Equal(t, "38%", results[0].Outcome.Margin)
	assert.Equal(t, 1, sess.searchAnother.clicks)
	assert.Equal(t, 1, sess.selectButton.clicks)

	written, ok := store.Cell(5, 3)
	require.True(t, ok)
	assert.Equal(t, "38%", written)
}

func TestRunAlternateSelectionIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAlternates = 3

	sess := &fakeSession{
		marginBatches:  [][]string{{}},
		warnings:       []bool{true},
		selectsOffered: 100,
	}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, cfg, testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 1, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeFailed, results[0].Outcome.Kind)
	assert.ErrorContains(t, results[0].Outcome.Err, "alternate selection exhausted")
	assert.Equal(t, 3, sess.selectButton.clicks)
	assert.Equal(t, 0, store.WriteCount())
}

func TestRunNoFurtherCandidatesIsSoft(t *testing.T) {
	sess := &fakeSession{
		marginBatches:  [][]string{{}},
		warnings:       []bool{true},
		selectsOffered: 0,
	}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 1, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeNoMargin, results[0].Outcome.Kind)
}

func TestRunMissingResultLabelsIsSoft(t *testing.T) {
	sess := &fakeSession{labelsMissing: true}
	store := rowstore.NewMemoryStore()
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), []Item{{Row: 1, ASIN: "B01ABC1234"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeNoMargin, results[0].Outcome.Kind)
	assert.Equal(t, 0, store.WriteCount())
}

func TestRunProcessesBatchInOrderAndIsolatesRows(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.SetColumn(1, []string{"ASIN", "B01ABC1234", "", "B09XYZ9876"})

	batch, err := BuildBatch(context.Background(), store)
	require.NoError(t, err)

	sess := &fakeSession{marginBatches: [][]string{{"12.5%"}}}
	driver := New(sess, store, testConfig(), testLogger(), nil)

	results, err := driver.Run(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, results, 2)

	first, ok := store.Cell(2, 3)
	require.True(t, ok)
	assert.Equal(t, "12.5%", first)

	second, ok := store.Cell(4, 3)
	require.True(t, ok)
	assert.Equal(t, "12.5%", second)

	// One write per non-blank identifier, blank row untouched.
	assert.Equal(t, 2, store.WriteCount())
	_, ok = store.Cell(3, 3)
	assert.False(t, ok)

	// Initial load plus one reset after each processed identifier.
	assert.Equal(t, 3, sess.navigations)
}
