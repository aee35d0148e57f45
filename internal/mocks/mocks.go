// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/notecrawl/internal/browser"
)

// -- Browser Mocks --

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	args := m.Called(ctx, url, timeout)
	return args.Error(0)
}

func (m *MockPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	args := m.Called(ctx, selector, timeout)
	return args.Error(0)
}

func (m *MockPage) Count(ctx context.Context, selector string) (int, error) {
	args := m.Called(ctx, selector)
	return args.Int(0), args.Error(1)
}

func (m *MockPage) ScrollBy(ctx context.Context, container string, dy int) error {
	args := m.Called(ctx, container, dy)
	return args.Error(0)
}

func (m *MockPage) HTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSession mocks browser.Session.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) NewPage(ctx context.Context) (browser.Page, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.(browser.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSession) Alive(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockSession) SaveState(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSession) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Scripted Fakes --

// Scroll records one ScrollBy call.
type Scroll struct {
	Container string
	DY        int
}

// FeedPage simulates an infinitely scrolling page. The item count after n
// successful scrolls is Counts[n], clamped to the last entry.
type FeedPage struct {
	mu sync.Mutex

	Counts []int
	// Containers lists the scroll containers present on the page.
	Containers map[string]bool
	// Present lists the selectors WaitFor finds.
	Present     map[string]bool
	NavigateErr error
	Body        string

	scrolls   []Scroll
	navigated []string
	closed    bool
}

var _ browser.Page = (*FeedPage)(nil)

func (p *FeedPage) Navigate(ctx context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.NavigateErr
}

func (p *FeedPage) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Present[selector] {
		return nil
	}
	return browser.ErrNotFound
}

func (p *FeedPage) Count(ctx context.Context, _ string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p.Counts) == 0 {
		return 0, nil
	}
	n := len(p.scrolls)
	if n >= len(p.Counts) {
		n = len(p.Counts) - 1
	}
	return p.Counts[n], nil
}

func (p *FeedPage) ScrollBy(ctx context.Context, container string, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if container != "" && !p.Containers[container] {
		return browser.ErrNotFound
	}
	p.scrolls = append(p.scrolls, Scroll{Container: container, DY: dy})
	return nil
}

func (p *FeedPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Body, nil
}

func (p *FeedPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Scrolls returns the recorded scroll calls.
func (p *FeedPage) Scrolls() []Scroll {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Scroll(nil), p.scrolls...)
}

// Navigated returns the URLs passed to Navigate.
func (p *FeedPage) Navigated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigated...)
}

// Closed reports whether Close was called.
func (p *FeedPage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// PageSession is a browser.Session whose pages come from NewPageFunc.
type PageSession struct {
	mu sync.Mutex

	NewPageFunc func(n int) (browser.Page, error)
	AliveFunc   func() bool
	SaveErr     error

	opened int
	saved  int
	closed int
}

var _ browser.Session = (*PageSession)(nil)

func (s *PageSession) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	n := s.opened
	s.opened++
	s.mu.Unlock()
	return s.NewPageFunc(n)
}

func (s *PageSession) Alive(context.Context) bool {
	if s.AliveFunc == nil {
		return true
	}
	return s.AliveFunc()
}

func (s *PageSession) SaveState(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return s.SaveErr
}

func (s *PageSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Opened returns how many pages were requested.
func (s *PageSession) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Saved returns how many times SaveState was called.
func (s *PageSession) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// CloseCount returns how many times Close was called.
func (s *PageSession) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
