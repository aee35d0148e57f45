// Package browser drives a single Chrome instance over the DevTools protocol.
//
// Callers see two small interfaces: Session for the browser as a whole and Page
// for one tab. Everything above this package is written against those, so it
// can be exercised without a real browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNavigationTimeout is returned when a page does not finish loading in time.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrNotFound is returned when a waited-for element never appears or a
	// scroll container does not exist.
	ErrNotFound = errors.New("element not found")
	// ErrClosed is returned for operations on a closed page or session.
	ErrClosed = errors.New("browser closed")
)

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for the load event, returning
	// ErrNavigationTimeout if that takes longer than timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitFor blocks until selector matches a visible element, returning
	// ErrNotFound after timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// ScrollBy scrolls the first element matching container by dy pixels, or the
	// viewport with a mouse wheel event when container is empty. A missing
	// container yields ErrNotFound.
	ScrollBy(ctx context.Context, container string, dy int) error
	// HTML snapshots the rendered document.
	HTML(ctx context.Context) (string, error)
	// Close releases the tab. It is safe to call more than once.
	Close() error
}

// Session is the long-lived browser resource.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	// Alive reports whether the browser still answers protocol commands.
	Alive(ctx context.Context) bool
	// SaveState persists the login cookies.
	SaveState(ctx context.Context) error
	Close(ctx context.Context) error
}

// Launcher builds a Session.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) { return f(ctx) }

// WaitFirst waits for each selector in turn, allowing each up to timeout, and
// returns the first one that appears. ErrNotFound means none did. Cancellation
// of ctx is returned as is.
func WaitFirst(ctx context.Context, p Page, selectors []string, timeout time.Duration) (string, error) {
	for _, sel := range selectors {
		err := p.WaitFor(ctx, sel, timeout)
		if err == nil {
			return sel, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("none of %d selectors appeared: %w", len(selectors), ErrNotFound)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
