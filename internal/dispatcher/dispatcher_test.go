package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu    sync.Mutex
	name  string
	ready bool
	fails int // remaining failures before success
	sent  []model.Email
}

func (p *fakeProvider) Name() string  { return p.name }
func (p *fakeProvider) Ready() bool   { return p.ready }
func (p *fakeProvider) Acquire() bool { return true }

func (p *fakeProvider) Send(_ context.Context, e model.Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New(p.name + " down")
	}
	p.sent = append(p.sent, e)
	return nil
}

var testEmail = model.Email{From: "desk@test", To: "rahul@test.com", Subject: "Hi", HTML: "<p>hi</p>"}

func TestDispatcherRoundRobin(t *testing.T) {
	a := &fakeProvider{name: "a", ready: true}
	b := &fakeProvider{name: "b", ready: true}
	d := NewDispatcher([]Provider{a, b}, 3, 2)

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Send(context.Background(), model.LaneStandard, testEmail))
	}
	require.Len(t, a.sent, 2)
	require.Len(t, b.sent, 2)
}

func TestDispatcherSkipsUnhealthy(t *testing.T) {
	a := &fakeProvider{name: "a", ready: false}
	b := &fakeProvider{name: "b", ready: true}
	d := NewDispatcher([]Provider{a, b}, 3, 2)

	require.NoError(t, d.Send(context.Background(), model.LanePriority, testEmail))
	require.Empty(t, a.sent)
	require.Len(t, b.sent, 1)

	b.ready = false
	require.ErrorIs(t, d.Send(context.Background(), model.LanePriority, testEmail), ErrNoHealthy)
}

func TestDispatcherLaneAttempts(t *testing.T) {
	p := &fakeProvider{name: "flaky", ready: true, fails: 2}
	d := NewDispatcher([]Provider{p}, 3, 2)

	// standard lane gives up after two attempts
	err := d.Send(context.Background(), model.LaneStandard, testEmail)
	require.EqualError(t, err, "flaky down")
	require.Empty(t, p.sent)

	// priority lane gets a third attempt
	p.fails = 2
	require.NoError(t, d.Send(context.Background(), model.LanePriority, testEmail))
	require.Len(t, p.sent, 1)
}

func TestDispatcherHonoursCancellation(t *testing.T) {
	p := &fakeProvider{name: "a", ready: true}
	d := NewDispatcher([]Provider{p}, 3, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Send(ctx, model.LaneStandard, testEmail), context.Canceled)
	require.Empty(t, p.sent)
}
