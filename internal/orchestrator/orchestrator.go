// File: internal/orchestrator/orchestrator.go
// Description: Owns the single browser session and serializes every operation
// that touches it. Each operation is liveness checked, rebuilt at most once,
// bounded by its own timeout, and its outcome folded into the apperr taxonomy.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/apperr"
	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/fetch"
)

// Operation names, as reported in timeout errors.
const (
	OpCheckSession = "check_login_status"
	OpSearch       = "search_notes"
	OpFetchItem    = "get_note_detail"
	OpFetchAll     = "crawl_keyword"
)

// State is the lifecycle state of the session.
type State int32

const (
	Stopped State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Searcher collects listing summaries on a page.
type Searcher interface {
	Search(ctx context.Context, page browser.Page, keyword string, max int) ([]schemas.Summary, error)
}

// Fetcher loads note details using a session.
type Fetcher interface {
	Fetch(ctx context.Context, s browser.Session, noteURL string, maxComments int) (schemas.Detail, error)
	FetchBatch(ctx context.Context, s browser.Session, summaries []schemas.Summary, maxComments int) (fetch.BatchResult, error)
}

// Prober reports whether the session is signed in.
type Prober interface {
	ProbeSession(ctx context.Context, s browser.Session) (bool, error)
}

// Saver persists a finished bulk job.
type Saver interface {
	SaveAll(ctx context.Context, run schemas.Run) error
}

// Deps are the collaborators of an Orchestrator. Saver may be nil.
type Deps struct {
	Launcher browser.Launcher
	Searcher Searcher
	Fetcher  Fetcher
	Prober   Prober
	Saver    Saver
}

// Orchestrator owns the browser session.
type Orchestrator struct {
	logger *zap.Logger
	cfg    config.SessionConfig
	deps   Deps

	// sem admits one operation at a time, in arrival order.
	sem   *semaphore.Weighted
	state atomic.Int32

	// lifeMu serializes Start, Stop and rebuilds, and guards session.
	lifeMu  sync.Mutex
	session browser.Session

	newRunID func() string
	now      func() time.Time
}

// New creates a stopped Orchestrator.
func New(cfg config.SessionConfig, deps Deps, logger *zap.Logger) (*Orchestrator, error) {
	if logger == nil ||
		deps.Launcher == nil ||
		deps.Searcher == nil ||
		deps.Fetcher == nil ||
		deps.Prober == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		logger:   logger.Named("orchestrator"),
		cfg:      cfg,
		deps:     deps,
		sem:      semaphore.NewWeighted(1),
		newRunID: uuid.NewString,
		now:      time.Now,
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Start launches the browser. It is a no-op while already running. On failure
// nothing stays allocated and the state is Stopped.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()
	if o.State() == Running {
		o.logger.Debug("Session already running; start skipped.")
		return nil
	}
	return o.startLocked(ctx)
}

// Stop closes the browser. It is safe to call in any state and always leaves
// the orchestrator Stopped.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()
	return o.stopLocked(ctx)
}

func (o *Orchestrator) startLocked(ctx context.Context) error {
	o.state.Store(int32(Starting))
	o.logger.Info("Starting browser session.")

	s, err := o.deps.Launcher.Launch(ctx)
	if err != nil {
		o.state.Store(int32(Stopped))
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	o.session = s
	o.state.Store(int32(Running))
	o.logger.Info("Browser session started.")
	return nil
}

func (o *Orchestrator) stopLocked(ctx context.Context) error {
	var err error
	if o.session != nil {
		o.logger.Info("Stopping browser session.")
		err = o.session.Close(ctx)
		o.session = nil
	}
	o.state.Store(int32(Stopped))
	return err
}

// ensureAlive returns a usable session, rebuilding it once if it has died.
func (o *Orchestrator) ensureAlive(ctx context.Context) (browser.Session, error) {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	// Stop may have run while this operation waited for its turn.
	if o.State() != Running || o.session == nil {
		return nil, apperr.SessionNotRunning()
	}
	if o.session.Alive(ctx) {
		return o.session, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.logger.Warn("Browser session is not responding; rebuilding.")
	if err := o.rebuildLocked(ctx); err != nil {
		o.logger.Error("Rebuilding the browser session failed.", zap.Error(err))
		return nil, apperr.SessionCrashed()
	}
	o.logger.Info("Browser session rebuilt.")
	return o.session, nil
}

// rebuildLocked swaps in a fresh session. The state stays Running throughout so
// callers arriving meanwhile queue on the lock; it drops to Stopped only when
// the relaunch fails.
func (o *Orchestrator) rebuildLocked(ctx context.Context) error {
	if err := o.session.Close(ctx); err != nil {
		o.logger.Debug("Closing the dead session failed.", zap.Error(err))
	}
	o.session = nil

	s, err := o.deps.Launcher.Launch(ctx)
	if err != nil {
		o.state.Store(int32(Stopped))
		return fmt.Errorf("failed to relaunch browser session: %w", err)
	}
	o.session = s
	return nil
}

// run executes fn with exclusive use of a live session under the timeout for
// op. A stopped orchestrator fails fast without touching the lock.
func (o *Orchestrator) run(ctx context.Context, op string, timeout time.Duration, fn func(context.Context, browser.Session) error) error {
	if o.State() != Running {
		return apperr.SessionNotRunning()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return o.classify(ctx, op, timeout, err)
	}
	defer o.sem.Release(1)

	s, err := o.ensureAlive(ctx)
	if err != nil {
		return o.classify(ctx, op, timeout, err)
	}
	return o.classify(ctx, op, timeout, fn(ctx, s))
}

func (o *Orchestrator) classify(ctx context.Context, op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		o.logger.Error("Operation timed out.", zap.String("op", op), zap.Duration("timeout", timeout))
		return apperr.Timeout(op, timeout)
	}
	return apperr.From(err)
}

// expired probes the login state after an ambiguous empty result. It returns
// SessionExpired when the probe says signed out, and nil when it says signed in
// or is inconclusive.
func (o *Orchestrator) expired(ctx context.Context, s browser.Session) error {
	ok, err := o.deps.Prober.ProbeSession(ctx, s)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warn("Login probe was inconclusive.", zap.Error(err))
		return nil
	}
	if !ok {
		o.logger.Warn("Empty result and signed out; reporting expired login.")
		return apperr.SessionExpired()
	}
	return nil
}

// search runs one listing search on a page of its own. Failures other than
// cancellation degrade to an empty listing.
func (o *Orchestrator) search(ctx context.Context, s browser.Session, keyword string, max int) ([]schemas.Summary, error) {
	page, err := s.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	results, err := o.deps.Searcher.Search(ctx, page, keyword, max)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("Search failed; treating as empty.", zap.String("keyword", keyword), zap.Error(err))
		return []schemas.Summary{}, nil
	}
	if results == nil {
		results = []schemas.Summary{}
	}
	return results, nil
}
