package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, openFor time.Duration) (*MicroBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	b := NewMicroBreaker(threshold, openFor)
	b.now = clk.Now
	return b, clk
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(2, time.Second)

	b.OnFailure()
	require.Equal(t, "closed", b.State())
	require.True(t, b.TryAcquire())

	b.OnFailure()
	require.Equal(t, "open", b.State())
	require.False(t, b.Ready())
	require.False(t, b.TryAcquire())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Second)

	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()
	require.Equal(t, "closed", b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, clk := newTestBreaker(1, time.Second)
	b.OnFailure()

	clk.Advance(1500 * time.Millisecond)
	require.True(t, b.Ready())
	require.True(t, b.TryAcquire())
	require.Equal(t, "half-open", b.State())

	// only one probe at a time
	require.False(t, b.Ready())
	require.False(t, b.TryAcquire())

	b.OnFailure()
	require.Equal(t, "open", b.State())
	require.False(t, b.TryAcquire())

	clk.Advance(2 * time.Second)
	require.True(t, b.TryAcquire())
	b.OnSuccess()
	require.Equal(t, "closed", b.State())
	require.True(t, b.Ready())
}
