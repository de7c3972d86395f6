package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// shadowQueryScript performs the two-level host -> shadowRoot -> inner
// traversal. All shadow-scoped lookups go through this one script.
const shadowQueryScript = `([host, inner]) => {
	const el = document.querySelector(host);
	if (!el || !el.shadowRoot) return null;
	return el.shadowRoot.querySelector(inner);
}`

// PageSession adapts a playwright page to the Session interface.
type PageSession struct {
	page   playwright.Page
	logger *slog.Logger
}

func NewPageSession(page playwright.Page, logger *slog.Logger) *PageSession {
	return &PageSession{
		page:   page,
		logger: logger.With("component", "session"),
	}
}

func (s *PageSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	s.logger.Debug("navigated", "url", url)
	return nil
}

func (s *PageSession) Find(selector string, timeout time.Duration) (Element, error) {
	handle, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil || handle == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}

	return &pageElement{handle: handle}, nil
}

func (s *PageSession) FindInShadow(hostSelector, innerSelector string) (Element, error) {
	handle, err := s.page.EvaluateHandle(shadowQueryScript, []interface{}{hostSelector, innerSelector})
	if err != nil {
		return nil, fmt.Errorf("shadow lookup %s >> %s: %w", hostSelector, innerSelector, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: %s >> %s", ErrNotFound, hostSelector, innerSelector)
	}

	element := handle.AsElement()
	if element == nil {
		return nil, fmt.Errorf("%w: %s >> %s", ErrNotFound, hostSelector, innerSelector)
	}

	return &pageElement{handle: element}, nil
}

func (s *PageSession) Evaluate(script string) (any, error) {
	return s.page.Evaluate(script)
}

func (s *PageSession) WaitTimeout(d time.Duration) {
	s.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (s *PageSession) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return nil
}

type pageElement struct {
	handle playwright.ElementHandle
}

func (e *pageElement) Fill(text string) error {
	return e.handle.Fill(text)
}

func (e *pageElement) Click() error {
	return e.handle.Click()
}
