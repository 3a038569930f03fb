package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/testops/taskwatch/internal/logging"
)

// Observer receives counters from a subscription. Implementations must be
// safe for concurrent use.
type Observer interface {
	// FrameClassified is called once per frame with the classified kind,
	// "discarded" or "parse_error".
	FrameClassified(outcome string)
	// Reconnecting is called before each reconnection attempt.
	Reconnecting(taskID string, attempt int)
	// ConnectionChanged is called whenever connectivity flips.
	ConnectionChanged(connected bool)
}

type nopObserver struct{}

func (nopObserver) FrameClassified(string)   {}
func (nopObserver) Reconnecting(string, int) {}
func (nopObserver) ConnectionChanged(bool)   {}

// Options tunes reconnection and instrumentation.
type Options struct {
	// ReconnectInterval is the first reconnection delay; it doubles on each
	// consecutive failure up to MaxReconnectInterval.
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration

	// MaxReconnectAttempts is the number of consecutive failures tolerated
	// before the subscription gives up with a Failed event.
	MaxReconnectAttempts int

	Logger   *logging.Logger
	Observer Observer

	// Now is the clock used for ReceivedAt; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the standard reconnection policy.
func DefaultOptions() Options {
	return Options{
		ReconnectInterval:    time.Second,
		MaxReconnectInterval: 30 * time.Second,
		MaxReconnectAttempts: 5,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = def.ReconnectInterval
	}
	if o.MaxReconnectInterval < o.ReconnectInterval {
		o.MaxReconnectInterval = max(def.MaxReconnectInterval, o.ReconnectInterval)
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// backoff returns the delay before the given reconnection attempt (1-based).
func (o Options) backoff(attempt int) time.Duration {
	d := o.ReconnectInterval
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.MaxReconnectInterval {
			return o.MaxReconnectInterval
		}
	}
	return d
}

// errStreamEnded is the cause recorded when the server closes the feed
// without a terminal frame.
var errStreamEnded = errors.New("stream ended unexpectedly")

// Subscription is a live feed for one task. Updates are delivered in frame
// order on Updates(); the channel is closed when the subscription ends.
type Subscription struct {
	taskID string
	dialer Dialer
	opts   Options
	log    *logging.Logger

	updates chan Update
	done    chan struct{}
	cancel  context.CancelFunc

	// mu protects the fields below
	mu          sync.RWMutex
	latest      *Event
	connected   bool
	closed      bool
	lastEventID string
	interval    time.Duration

	closeOnce sync.Once
}

// Subscribe opens a subscription for taskID and starts reading in the
// background. The subscription ends on a terminal event, when ctx is
// canceled or when Close is called.
func Subscribe(ctx context.Context, dialer Dialer, taskID string, opts Options) *Subscription {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		taskID:   taskID,
		dialer:   dialer,
		opts:     opts,
		log:      opts.Logger.Component("stream").With("task", taskID),
		updates:  make(chan Update, 32),
		done:     make(chan struct{}),
		cancel:   cancel,
		interval: opts.ReconnectInterval,
	}
	go s.run(ctx)
	return s
}

// TaskID returns the task this subscription follows.
func (s *Subscription) TaskID() string {
	return s.taskID
}

// Updates returns the delivery channel.
func (s *Subscription) Updates() <-chan Update {
	return s.updates
}

// Done is closed once the background reader has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// LatestEvent returns the most recent classified event, or nil.
func (s *Subscription) LatestEvent() *Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// IsConnected reports whether the feed is currently open.
func (s *Subscription) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Close stops the subscription and waits for the reader to exit. Frames
// arriving after Close are dropped. Close is safe to call more than once
// and from any goroutine.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		wasConnected := s.connected
		s.connected = false
		s.mu.Unlock()
		if wasConnected {
			s.opts.Observer.ConnectionChanged(false)
		}
		s.cancel()
	})
	<-s.done
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	defer s.cancel()

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		body, err := s.dialer.Dial(ctx, s.taskID, s.eventID())
		if err == nil {
			s.setConnected(ctx, true)
			var terminal, progressed bool
			terminal, progressed, err = s.consume(ctx, body)
			if terminal || ctx.Err() != nil {
				return
			}
			if progressed {
				attempts = 0
			}
			s.setConnected(ctx, false)
			if err == nil {
				err = errStreamEnded
			}
		}
		if ctx.Err() != nil {
			return
		}

		if IsPermanent(err) {
			s.fail(ctx, err)
			return
		}

		attempts++
		if attempts > s.opts.MaxReconnectAttempts {
			s.fail(ctx, fmt.Errorf("gave up after %d attempts: %w", s.opts.MaxReconnectAttempts, err))
			return
		}

		delay := s.delay(attempts)
		s.log.Debug("reconnecting", "attempt", attempts, "delay", delay, "error", err)
		s.opts.Observer.Reconnecting(s.taskID, attempts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// consume reads frames until the body ends, a terminal event is delivered or
// ctx is canceled. progressed reports whether any frame was read.
func (s *Subscription) consume(ctx context.Context, body io.ReadCloser) (terminal, progressed bool, err error) {
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer func() {
		stop()
		body.Close()
	}()

	reader := NewFrameReader(body)
	for {
		frame, err := reader.Next()
		if errors.Is(err, ErrFrameTooLarge) {
			progressed = true
			s.log.Warn("dropping oversized frame", "limit", MaxFrameSize)
			s.opts.Observer.FrameClassified("parse_error")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, progressed, nil
			}
			return false, progressed, err
		}
		progressed = true
		s.remember(frame)

		ev, err := Classify(frame, s.opts.Now())
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				s.log.Warn("dropping malformed frame", "event", pe.Event, "error", pe.Err)
				s.opts.Observer.FrameClassified("parse_error")
			} else {
				s.opts.Observer.FrameClassified("discarded")
			}
			continue
		}

		s.opts.Observer.FrameClassified(string(ev.Kind))
		if ev.IsTerminal() {
			s.publish(ctx, ev, false)
			return true, true, nil
		}
		s.publish(ctx, ev, true)
	}
}

// fail delivers the synthetic failure raised when the transport gives up.
func (s *Subscription) fail(ctx context.Context, cause error) {
	s.log.Warn("stream failed", "error", cause)
	s.publish(ctx, &Event{
		Kind:       KindFailed,
		Message:    "stream connection closed: " + cause.Error(),
		ReceivedAt: s.opts.Now(),
	}, false)
}

func (s *Subscription) setConnected(ctx context.Context, connected bool) {
	s.mu.RLock()
	same := s.connected == connected
	s.mu.RUnlock()
	if same {
		return
	}
	s.publish(ctx, nil, connected)
}

// publish records ev and the connectivity flag, then hands them to the
// reader. It is a no-op after Close.
func (s *Subscription) publish(ctx context.Context, ev *Event, connected bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if ev != nil {
		s.latest = ev
	}
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()

	if changed {
		s.opts.Observer.ConnectionChanged(connected)
	}

	select {
	case s.updates <- Update{Event: ev, Connected: connected}:
	case <-ctx.Done():
	}
}

func (s *Subscription) remember(f *Frame) {
	if f.ID == "" && f.Retry == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID != "" {
		s.lastEventID = f.ID
	}
	if f.Retry > 0 {
		s.interval = f.Retry
	}
}

func (s *Subscription) eventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEventID
}

func (s *Subscription) delay(attempt int) time.Duration {
	s.mu.RLock()
	opts := s.opts
	opts.ReconnectInterval = s.interval
	s.mu.RUnlock()
	if opts.MaxReconnectInterval < opts.ReconnectInterval {
		opts.MaxReconnectInterval = opts.ReconnectInterval
	}
	return opts.backoff(attempt)
}
