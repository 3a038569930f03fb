package stream

import (
	"context"
	"sync"
)

// Consumer keeps at most one subscription open at a time.
type Consumer struct {
	dialer Dialer
	opts   Options

	mu      sync.Mutex
	current *Subscription
}

// NewConsumer creates a Consumer that dials through d.
func NewConsumer(d Dialer, opts Options) *Consumer {
	return &Consumer{dialer: d, opts: opts}
}

// Open closes the current subscription, if any, and subscribes to taskID.
// An empty taskID only closes the current subscription and returns nil.
func (c *Consumer) Open(ctx context.Context, taskID string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Close()
		c.current = nil
	}
	if taskID != "" {
		c.current = Subscribe(ctx, c.dialer, taskID, c.opts)
	}
	return c.current
}

// Current returns the open subscription, or nil.
func (c *Consumer) Current() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close closes the current subscription. It is safe to call repeatedly.
func (c *Consumer) Close() {
	c.Open(context.Background(), "")
}
