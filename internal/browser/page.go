package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// cdpPage is a Page backed by one chromedp target.
type cdpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	// Wheel events are dispatched at the viewport center.
	centerX, centerY float64

	closeOnce sync.Once
	release   func()
}

// run executes actions on the tab, bounded by ctx and, if positive, timeout.
func (p *cdpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	return chromedp.Run(runCtx, actions...)
}

// ownTimeout reports whether err came from the per-call timeout rather than
// from the caller's context.
func ownTimeout(ctx context.Context, err error) bool {
	return ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}

func (p *cdpPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.Navigate(url))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case ownTimeout(ctx, err):
		return fmt.Errorf("%w after %s", ErrNavigationTimeout, timeout)
	default:
		return fmt.Errorf("navigation failed: %w", err)
	}
}

func (p *cdpPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case ownTimeout(ctx, err):
		return fmt.Errorf("%q: %w", selector, ErrNotFound)
	default:
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
}

func (p *cdpPage) Count(ctx context.Context, selector string) (int, error) {
	sel, err := jsoniter.MarshalToString(selector)
	if err != nil {
		return 0, err
	}
	var n int
	if err := p.run(ctx, 0, chromedp.Evaluate("document.querySelectorAll("+sel+").length", &n)); err != nil {
		return 0, fmt.Errorf("count %q failed: %w", selector, err)
	}
	return n, nil
}

func (p *cdpPage) ScrollBy(ctx context.Context, container string, dy int) error {
	if container == "" {
		wheel := input.DispatchMouseEvent(input.MouseWheel, p.centerX, p.centerY).
			WithDeltaX(0).
			WithDeltaY(float64(dy))
		if err := p.run(ctx, 0, wheel); err != nil {
			return fmt.Errorf("wheel scroll failed: %w", err)
		}
		return nil
	}

	sel, err := jsoniter.MarshalToString(container)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  el.scrollBy(0, %d);
  return true;
})()`, sel, dy)
	var scrolled bool
	if err := p.run(ctx, 0, chromedp.Evaluate(script, &scrolled)); err != nil {
		return fmt.Errorf("container scroll failed: %w", err)
	}
	if !scrolled {
		return fmt.Errorf("scroll container %q: %w", container, ErrNotFound)
	}
	return nil
}

func (p *cdpPage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot failed: %w", err)
	}
	return html, nil
}

// Close closes the tab. Canceling a non-initial chromedp context closes its target.
func (p *cdpPage) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.release != nil {
			p.release()
		}
		p.logger.Debug("Page closed.")
	})
	return nil
}
