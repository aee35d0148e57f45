package harvest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerBounds(t *testing.T) {
	p := NewPacer(rand.New(rand.NewSource(42)), nil)
	for i := 0; i < 500; i++ {
		n := p.IntBetween(200, 400)
		assert.GreaterOrEqual(t, n, 200)
		assert.LessOrEqual(t, n, 400)

		d := p.Between(2*time.Second, 5*time.Second)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 5*time.Second)
	}

	assert.Equal(t, 7, p.IntBetween(7, 3))
	assert.Equal(t, time.Second, p.Between(time.Second, time.Second))
}

func TestPacerWaitAddsBase(t *testing.T) {
	var got time.Duration
	p := NewPacer(rand.New(rand.NewSource(1)), func(_ context.Context, d time.Duration) error {
		got = d
		return nil
	})

	require.NoError(t, p.Wait(context.Background(), time.Second, 0, 0))
	assert.Equal(t, time.Second, got)
}

func TestPacerWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPacer(nil, nil)
	start := time.Now()
	err := p.Wait(ctx, time.Hour, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
