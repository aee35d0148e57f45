package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/extract"
	"github.com/xkilldash9x/notecrawl/internal/mocks"
)

func TestProbe(t *testing.T) {
	p := NewProber(30*time.Second, 5*time.Second, nil)

	t.Run("signed in", func(t *testing.T) {
		page := &mocks.FeedPage{Present: map[string]bool{extract.LoggedInSelector: true}}
		ok, err := p.Probe(context.Background(), page)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{HomeURL}, page.Navigated())
	})

	t.Run("signed out", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		p := NewProber(30*time.Second, 5*time.Second, zap.New(core))

		ok, err := p.Probe(context.Background(), &mocks.FeedPage{})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, logs.FilterMessage("Profile link absent; not signed in.").Len())
	})

	t.Run("home page timeout is signed out", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		p := NewProber(30*time.Second, 5*time.Second, zap.New(core))

		ok, err := p.Probe(context.Background(), &mocks.FeedPage{NavigateErr: browser.ErrNavigationTimeout})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, logs.FilterMessage("Home page did not load; treating as not signed in.").Len())
	})

	t.Run("other navigation failure is an error", func(t *testing.T) {
		ok, err := p.Probe(context.Background(), &mocks.FeedPage{NavigateErr: browser.ErrClosed})
		assert.ErrorIs(t, err, browser.ErrClosed)
		assert.False(t, ok)
	})

	t.Run("cancelled navigation is an error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		page := new(mocks.MockPage)
		page.On("Navigate", mock.Anything, HomeURL, 30*time.Second).Return(browser.ErrNavigationTimeout)

		_, err := p.Probe(ctx, page)
		assert.ErrorIs(t, err, browser.ErrNavigationTimeout)
		page.AssertExpectations(t)
	})

	t.Run("probe waits with the configured budget", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("Navigate", mock.Anything, HomeURL, 30*time.Second).Return(nil)
		page.On("WaitFor", mock.Anything, extract.LoggedInSelector, 5*time.Second).Return(browser.ErrClosed)

		_, err := p.Probe(context.Background(), page)
		assert.ErrorIs(t, err, browser.ErrClosed)
		page.AssertExpectations(t)
	})
}

func TestProbeSessionClosesPage(t *testing.T) {
	page := &mocks.FeedPage{}
	s := &mocks.PageSession{NewPageFunc: func(int) (browser.Page, error) { return page, nil }}

	ok, err := NewProber(time.Second, time.Second, nil).ProbeSession(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, page.Closed())
}

func TestLogin(t *testing.T) {
	t.Run("saves cookies once signed in", func(t *testing.T) {
		page := &mocks.FeedPage{Present: map[string]bool{extract.LoggedInSelector: true}}
		s := &mocks.PageSession{NewPageFunc: func(int) (browser.Page, error) { return page, nil }}

		err := NewProber(time.Second, time.Second, nil).Login(context.Background(), s, 2*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{ExploreURL}, page.Navigated())
		assert.Equal(t, 1, s.Saved())
		assert.True(t, page.Closed())
	})

	t.Run("times out without saving", func(t *testing.T) {
		page := &mocks.FeedPage{}
		s := &mocks.PageSession{NewPageFunc: func(int) (browser.Page, error) { return page, nil }}

		err := NewProber(time.Second, time.Second, nil).Login(context.Background(), s, time.Millisecond)
		assert.ErrorIs(t, err, ErrLoginTimeout)
		assert.Zero(t, s.Saved())
		assert.True(t, page.Closed())
	})

	t.Run("save failure is reported", func(t *testing.T) {
		boom := errors.New("disk full")
		page := &mocks.FeedPage{Present: map[string]bool{extract.LoggedInSelector: true}}
		s := &mocks.PageSession{NewPageFunc: func(int) (browser.Page, error) { return page, nil }, SaveErr: boom}

		err := NewProber(time.Second, time.Second, nil).Login(context.Background(), s, time.Second)
		assert.ErrorIs(t, err, boom)
	})
}
