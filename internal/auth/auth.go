// Package auth detects and establishes the signed-in state of the browser
// session.
//
// Signed-in is defined as the presence of a link to the account's own profile
// page, which the site renders in the side bar of every page only while an
// account is logged in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/extract"
)

const (
	HomeURL    = extract.BaseURL
	ExploreURL = extract.BaseURL + "/explore"
)

// ErrLoginTimeout is returned when nobody completed the login in time.
var ErrLoginTimeout = errors.New("login was not completed in time")

// Prober checks the login state.
type Prober struct {
	logger      *zap.Logger
	loadTimeout time.Duration
	probeWait   time.Duration
}

// NewProber creates a Prober. loadTimeout bounds the home page load and
// probeWait the wait for the profile link.
func NewProber(loadTimeout, probeWait time.Duration, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{logger: logger.Named("auth"), loadTimeout: loadTimeout, probeWait: probeWait}
}

// Probe loads the home page on page and reports whether the account is signed
// in. A missing profile link or a home page that never loads is a "no"; other
// navigation and protocol failures are returned as errors.
func (p *Prober) Probe(ctx context.Context, page browser.Page) (bool, error) {
	if err := page.Navigate(ctx, HomeURL, p.loadTimeout); err != nil {
		if errors.Is(err, browser.ErrNavigationTimeout) && ctx.Err() == nil {
			p.logger.Warn("Home page did not load; treating as not signed in.", zap.Error(err))
			return false, nil
		}
		return false, fmt.Errorf("loading home page: %w", err)
	}
	err := page.WaitFor(ctx, extract.LoggedInSelector, p.probeWait)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, browser.ErrNotFound):
		p.logger.Info("Profile link absent; not signed in.")
		return false, nil
	default:
		return false, err
	}
}

// ProbeSession runs Probe on a fresh page of s.
func (p *Prober) ProbeSession(ctx context.Context, s browser.Session) (bool, error) {
	page, err := s.NewPage(ctx)
	if err != nil {
		return false, err
	}
	defer page.Close()
	return p.Probe(ctx, page)
}

// Login opens the explore page for a person to sign in by hand, waits up to
// wait for the profile link to appear, and then persists the session cookies.
func (p *Prober) Login(ctx context.Context, s browser.Session, wait time.Duration) error {
	page, err := s.NewPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	if err := page.Navigate(ctx, ExploreURL, p.loadTimeout); err != nil {
		return fmt.Errorf("loading explore page: %w", err)
	}
	p.logger.Info("Waiting for manual login in the browser window.", zap.Duration("wait", wait))

	if err := page.WaitFor(ctx, extract.LoggedInSelector, wait); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return ErrLoginTimeout
		}
		return err
	}

	if err := s.SaveState(ctx); err != nil {
		return fmt.Errorf("saving login state: %w", err)
	}
	p.logger.Info("Login succeeded; cookies saved.")
	return nil
}
