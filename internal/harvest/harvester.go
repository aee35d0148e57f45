// Package harvest implements scroll-driven incremental collection: scroll,
// wait, re-count, and stop when the target is met or growth stalls.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/extract"
)

// Mode parameterizes one kind of harvest.
type Mode struct {
	Name string
	// Containers are tried in order; the first one present is scrolled. When
	// none is present the viewport is scrolled instead.
	Containers     []string
	StaleThreshold int
	ScrollMin      int
	ScrollMax      int
	Pause          time.Duration
	JitterMin      time.Duration
	JitterMax      time.Duration
}

// ListingMode scrolls the whole search-result page.
func ListingMode(cfg config.ScrollConfig) Mode {
	return newMode("listing", nil, cfg)
}

// CommentMode scrolls the note's comment panel.
func CommentMode(cfg config.ScrollConfig) Mode {
	return newMode("comments", extract.CommentScrollers, cfg)
}

func newMode(name string, containers []string, cfg config.ScrollConfig) Mode {
	return Mode{
		Name:           name,
		Containers:     containers,
		StaleThreshold: cfg.StaleThreshold,
		ScrollMin:      cfg.ScrollMin,
		ScrollMax:      cfg.ScrollMax,
		Pause:          cfg.Pause,
		JitterMin:      cfg.JitterMin,
		JitterMax:      cfg.JitterMax,
	}
}

// Stop reasons.
const (
	StopTarget = "target_reached"
	StopStale  = "no_growth"
)

// Result describes a finished harvest.
type Result struct {
	Count  int
	Rounds int
	Reason string
}

// Harvester runs scroll harvests against a page.
type Harvester struct {
	logger *zap.Logger
	pacer  *Pacer
}

// New creates a Harvester.
func New(pacer *Pacer, logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{logger: logger.Named("harvester"), pacer: pacer}
}

// Run scrolls page until at least target elements match item or the count has
// not grown for mode.StaleThreshold consecutive rounds. Stopping short of the
// target is a normal outcome, not an error.
func (h *Harvester) Run(ctx context.Context, page browser.Page, mode Mode, item string, target int) (Result, error) {
	logger := h.logger.With(zap.String("mode", mode.Name), zap.Int("target", target))

	count, err := page.Count(ctx, item)
	if err != nil {
		return Result{}, fmt.Errorf("initial count failed: %w", err)
	}

	res := Result{Count: count}
	stale := 0
	for {
		if res.Count >= target {
			res.Reason = StopTarget
			break
		}

		if err := h.scroll(ctx, page, mode); err != nil {
			return res, err
		}
		res.Rounds++

		if err := h.pacer.Wait(ctx, mode.Pause, mode.JitterMin, mode.JitterMax); err != nil {
			return res, err
		}

		next, err := page.Count(ctx, item)
		if err != nil {
			return res, fmt.Errorf("re-count failed: %w", err)
		}
		if next > res.Count {
			stale = 0
		} else {
			stale++
		}
		logger.Debug("Scroll round finished.",
			zap.Int("round", res.Rounds),
			zap.Int("count", next),
			zap.Int("stale", stale),
		)
		res.Count = next

		if stale >= mode.StaleThreshold {
			res.Reason = StopStale
			break
		}
	}

	logger.Info("Harvest finished.",
		zap.Int("count", res.Count),
		zap.Int("rounds", res.Rounds),
		zap.String("reason", res.Reason),
	)
	return res, nil
}

// scroll performs one burst against the first present container, falling back
// to the viewport.
func (h *Harvester) scroll(ctx context.Context, page browser.Page, mode Mode) error {
	dy := h.pacer.IntBetween(mode.ScrollMin, mode.ScrollMax)
	for _, container := range mode.Containers {
		err := page.ScrollBy(ctx, container, dy)
		if err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrNotFound) {
			return fmt.Errorf("scroll failed: %w", err)
		}
	}
	if err := page.ScrollBy(ctx, "", dy); err != nil {
		return fmt.Errorf("viewport scroll failed: %w", err)
	}
	return nil
}
