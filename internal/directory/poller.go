package directory

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the time between scheduled refreshes.
const DefaultInterval = 5 * time.Second

// Poller delivers refresh ticks on C. Ticks coalesce: a reader that falls
// behind sees at most one pending tick.
type Poller struct {
	interval time.Duration
	ch       chan time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPoller creates a stopped Poller.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		interval: interval,
		ch:       make(chan time.Time, 1),
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// C returns the tick channel.
func (p *Poller) C() <-chan time.Time {
	return p.ch
}

// Start emits an immediate tick and then one per interval until ctx is
// done or Stop is called. Only the first call has an effect.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		p.Trigger()
		go p.run(ctx)
	})
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.send(now)
		}
	}
}

// Trigger requests an immediate refresh.
func (p *Poller) Trigger() {
	p.send(time.Now())
}

func (p *Poller) send(now time.Time) {
	select {
	case p.ch <- now:
	default:
	}
}

// Stop cancels the ticker and waits for it to exit. Repeated calls, and calls
// on a Poller that was never started, are no-ops.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		// Closing done here also keeps a later Start from running.
		p.startOnce.Do(func() { close(p.done) })
		p.cancel()
		<-p.done
	})
}
