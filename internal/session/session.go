package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("element not found")

// Element is a handle to a located page element.
type Element interface {
	Fill(text string) error
	Click() error
}

// Session is the capability set the extraction driver needs from a
// controllable page: navigation, element lookup (including shadow-scoped
// lookup), script evaluation and timed waits. Production sessions wrap a
// playwright page; tests script a fake.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Find waits up to timeout for selector to appear and returns a handle
	// to it, or ErrNotFound.
	Find(selector string, timeout time.Duration) (Element, error)
	// FindInShadow resolves hostSelector, enters its shadow root, and
	// resolves innerSelector inside it. Returns ErrNotFound when either
	// level is missing.
	FindInShadow(hostSelector, innerSelector string) (Element, error)
	Evaluate(script string) (any, error)
	WaitTimeout(d time.Duration)
	WaitForSelector(selector string, timeout time.Duration) error
}
