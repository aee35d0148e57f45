package harvest

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/mocks"
)

// recordingSleep collects requested pauses without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = append(r.pauses, d)
	return ctx.Err()
}

func testMode() Mode {
	return ListingMode(config.ScrollConfig{
		Pause:          1500 * time.Millisecond,
		JitterMin:      time.Second,
		JitterMax:      3 * time.Second,
		ScrollMin:      300,
		ScrollMax:      600,
		StaleThreshold: 2,
	})
}

func newTestHarvester(rec *recordingSleep) *Harvester {
	return New(NewPacer(rand.New(rand.NewSource(1)), rec.sleep), zap.NewNop())
}

func TestRunStopsWithoutScrollingWhenTargetAlreadyMet(t *testing.T) {
	rec := &recordingSleep{}
	page := &mocks.FeedPage{Counts: []int{12}}

	res, err := newTestHarvester(rec).Run(context.Background(), page, testMode(), ".card", 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Count: 12, Rounds: 0, Reason: StopTarget}, res)
	assert.Empty(t, page.Scrolls())
	assert.Empty(t, rec.pauses)
}

func TestRunReachesTarget(t *testing.T) {
	rec := &recordingSleep{}
	page := &mocks.FeedPage{Counts: []int{4, 8, 12, 16}}

	res, err := newTestHarvester(rec).Run(context.Background(), page, testMode(), ".card", 10)
	require.NoError(t, err)
	assert.Equal(t, StopTarget, res.Reason)
	assert.Equal(t, 12, res.Count)
	assert.Equal(t, 2, res.Rounds)
	assert.Len(t, page.Scrolls(), 2)
	require.Len(t, rec.pauses, 2)
	for _, d := range rec.pauses {
		assert.GreaterOrEqual(t, d, 2500*time.Millisecond)
		assert.Less(t, d, 4500*time.Millisecond)
	}
}

func TestRunTerminatesOnStaticContent(t *testing.T) {
	rec := &recordingSleep{}
	page := &mocks.FeedPage{Counts: []int{3}}
	mode := testMode()

	res, err := newTestHarvester(rec).Run(context.Background(), page, mode, ".card", 50)
	require.NoError(t, err)
	assert.Equal(t, StopStale, res.Reason)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, mode.StaleThreshold, res.Rounds)
	assert.LessOrEqual(t, res.Rounds, mode.StaleThreshold+1)
}

func TestRunShortFeedReturnsWhatExists(t *testing.T) {
	rec := &recordingSleep{}
	page := &mocks.FeedPage{Counts: []int{1, 2, 3}}

	res, err := newTestHarvester(rec).Run(context.Background(), page, testMode(), ".card", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, StopStale, res.Reason)
	assert.Equal(t, 4, res.Rounds, "two growing rounds then two stale ones")
}

func TestRunStaleCounterResetsOnGrowth(t *testing.T) {
	rec := &recordingSleep{}
	// grows, stalls, grows, stalls twice
	page := &mocks.FeedPage{Counts: []int{1, 2, 2, 3, 3, 3}}

	res, err := newTestHarvester(rec).Run(context.Background(), page, testMode(), ".card", 100)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rounds)
	assert.Equal(t, 3, res.Count)
}

func TestRunScrollMagnitudeWithinBounds(t *testing.T) {
	rec := &recordingSleep{}
	page := &mocks.FeedPage{Counts: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}

	_, err := newTestHarvester(rec).Run(context.Background(), page, testMode(), ".card", 10)
	require.NoError(t, err)
	for _, s := range page.Scrolls() {
		assert.Empty(t, s.Container)
		assert.GreaterOrEqual(t, s.DY, 300)
		assert.LessOrEqual(t, s.DY, 600)
	}
}

func TestCommentModeContainerFallback(t *testing.T) {
	cfg := config.ScrollConfig{ScrollMin: 200, ScrollMax: 400, StaleThreshold: 3}

	t.Run("uses the second container when the first is absent", func(t *testing.T) {
		mode := CommentMode(cfg)
		require.Len(t, mode.Containers, 2)
		page := &mocks.FeedPage{Counts: []int{0, 1}, Containers: map[string]bool{mode.Containers[1]: true}}

		_, err := newTestHarvester(&recordingSleep{}).Run(context.Background(), page, mode, ".comment", 1)
		require.NoError(t, err)
		require.Len(t, page.Scrolls(), 1)
		assert.Equal(t, mode.Containers[1], page.Scrolls()[0].Container)
	})

	t.Run("falls back to the viewport", func(t *testing.T) {
		page := &mocks.FeedPage{Counts: []int{0, 1}}

		_, err := newTestHarvester(&recordingSleep{}).Run(context.Background(), page, CommentMode(cfg), ".comment", 1)
		require.NoError(t, err)
		require.Len(t, page.Scrolls(), 1)
		assert.Equal(t, "", page.Scrolls()[0].Container)
	})
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := errors.New("target crashed")

	t.Run("initial count", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("Count", mock.Anything, ".card").Return(0, boom)

		_, err := newTestHarvester(&recordingSleep{}).Run(context.Background(), page, testMode(), ".card", 5)
		assert.ErrorIs(t, err, boom)
		page.AssertExpectations(t)
	})

	t.Run("scroll", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("Count", mock.Anything, ".card").Return(1, nil)
		page.On("ScrollBy", mock.Anything, "", mock.AnythingOfType("int")).Return(browser.ErrClosed)

		res, err := newTestHarvester(&recordingSleep{}).Run(context.Background(), page, testMode(), ".card", 5)
		assert.ErrorIs(t, err, browser.ErrClosed)
		assert.Equal(t, 1, res.Count)
		page.AssertExpectations(t)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		page := &mocks.FeedPage{Counts: []int{1, 2, 3}}

		_, err := newTestHarvester(&recordingSleep{}).Run(ctx, page, testMode(), ".card", 5)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
