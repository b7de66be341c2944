package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/fleetgraph/pkg/fn"
)

var (
	errDown = errors.New("down")
	errBad  = errors.New("bad input")
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts BreakerOpts) (*Breaker, *clock) {
	c := &clock{t: time.Unix(0, 0)}
	b := NewBreaker(opts)
	b.now = c.now
	return b, c
}

func fail(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestBreaker_Trips(t *testing.T) {
	b, clk := newTestBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Second})
	ctx := context.Background()

	assert.ErrorIs(t, b.Call(ctx, fail(errDown)), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Call(ctx, fail(errDown)), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clk.advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Call(ctx, fail(nil)))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Second})
	ctx := context.Background()

	_ = b.Call(ctx, fail(errDown))
	clk.advance(time.Second)
	assert.ErrorIs(t, b.Call(ctx, fail(errDown)), errDown)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_IgnoresNonFailures(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{
		FailThreshold: 1,
		IsFailure:     func(err error) bool { return errors.Is(err, errDown) },
	})
	ctx := context.Background()

	for range 3 {
		assert.ErrorIs(t, b.Call(ctx, fail(errBad)), errBad)
	}
	assert.Equal(t, StateClosed, b.State())
	_ = b.Call(ctx, fail(errDown))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_Stage(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 1})
	s := Stage(b, func(_ context.Context, n int) fn.Result[int] {
		if n < 0 {
			return fn.Err[int](errDown)
		}
		return fn.Ok(n)
	})

	v, err := s(context.Background(), 2).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	assert.ErrorIs(t, s(context.Background(), -1).Error(), errDown)
	assert.ErrorIs(t, s(context.Background(), 2).Error(), ErrCircuitOpen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
