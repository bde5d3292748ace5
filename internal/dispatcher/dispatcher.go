package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmehdipour/contact-desk/internal/model"
)

var (
	ErrNoHealthy = errors.New("no healthy providers")
	ErrNoAcquire = errors.New("provider not acquired")
)

// Dispatcher spreads emails over healthy providers round-robin and retries
// a failed send up to the lane's attempt budget.
type Dispatcher struct {
	providers           []Provider
	roundRobinCounter   atomic.Uint64
	maxAttemptsStandard int
	maxAttemptsPriority int
}

func NewDispatcher(provs []Provider, maxAttemptsPriority, maxAttemptsStandard int) *Dispatcher {
	if maxAttemptsPriority < 1 {
		maxAttemptsPriority = 3
	}
	if maxAttemptsStandard < 1 {
		maxAttemptsStandard = 2
	}

	return &Dispatcher{
		providers:           provs,
		maxAttemptsPriority: maxAttemptsPriority,
		maxAttemptsStandard: maxAttemptsStandard,
	}
}

func (d *Dispatcher) selectProvider() (Provider, error) {
	healthy := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Ready() {
			healthy = append(healthy, p)
		}
	}
	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, e model.Email) error {
	p, err := d.selectProvider()
	if err != nil {
		return err
	}
	if !p.Acquire() {
		return ErrNoAcquire
	}
	return p.Send(ctx, e)
}

func (d *Dispatcher) attempts(lane model.Lane) int {
	if lane == model.LanePriority {
		return d.maxAttemptsPriority
	}
	return d.maxAttemptsStandard
}

// Send delivers e, retrying on another provider when an attempt fails.
func (d *Dispatcher) Send(ctx context.Context, lane model.Lane, e model.Email) error {
	var last error
	for i := 0; i < d.attempts(lane); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.tryOnce(ctx, e)
		if err == nil {
			return nil
		}
		last = err
	}

	if last == nil {
		last = fmt.Errorf("send %s failed", lane)
	}
	return last
}
