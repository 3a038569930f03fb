// Package monitor is the task-monitoring view model. A single goroutine owns
// all state: poll ticks, fetch results, stream updates and user commands are
// handled one at a time on that loop, and every change is published as an
// immutable Snapshot.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/directory"
	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/metrics"
	"github.com/testops/taskwatch/internal/reconcile"
	"github.com/testops/taskwatch/internal/selection"
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/task"
)

// ErrNotRunning is returned by commands posted after Run has returned.
var ErrNotRunning = errors.New("monitor is not running")

// Config wires a Monitor to its collaborators.
type Config struct {
	API    api.TaskAPI
	Dialer stream.Dialer

	PollInterval  time.Duration
	PageSize      int
	CacheSize     int
	StreamOptions stream.Options

	// Router is the view's address; defaults to an in-memory router.
	Router selection.Router

	Metrics *metrics.Metrics
	Logger  *logging.Logger
	Now     func() time.Time
}

// Monitor reconciles the polled task list, the selected task's stream and
// user selection into one consistent view.
type Monitor struct {
	api      api.TaskAPI
	dir      *directory.Directory
	poller   *directory.Poller
	guard    *selection.Guard
	router   selection.Router
	consumer *stream.Consumer
	policy   *reconcile.Policy
	fetcher  *reconcile.Fetcher
	metrics  *metrics.Metrics
	log      *logging.Logger
	now      func() time.Time

	inbox   chan message
	stopped chan struct{}
	running atomic.Bool
	helpers sync.WaitGroup

	// Loop-owned state. Only the Run goroutine touches these.
	sub         *stream.Subscription
	selected    *task.Task
	latestEvent *stream.Event
	connected   bool
	lastError   *Notice
	lastPoll    time.Time
	polling     bool
	pollAgain   bool
	version     uint64

	snapshot atomic.Pointer[Snapshot]

	watchMu  sync.Mutex
	watchers map[int]chan Snapshot
	nextID   int
}

// New creates a Monitor. Call Run to start it.
func New(cfg Config) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Router == nil {
		cfg.Router = selection.NewMemoryRouter("")
	}
	opts := cfg.StreamOptions
	if opts.Logger == nil {
		opts.Logger = cfg.Logger
	}
	if opts.Observer == nil && cfg.Metrics != nil {
		opts.Observer = cfg.Metrics
	}

	m := &Monitor{
		api:      cfg.API,
		dir:      directory.New(cfg.API, cfg.PageSize),
		poller:   directory.NewPoller(cfg.PollInterval),
		guard:    selection.NewGuard(cfg.Router),
		router:   cfg.Router,
		consumer: stream.NewConsumer(cfg.Dialer, opts),
		policy:   reconcile.NewPolicy(reconcile.NewDetailCache(cfg.CacheSize)),
		fetcher:  reconcile.NewFetcher(cfg.API),
		metrics:  cfg.Metrics,
		log:      cfg.Logger.Component("monitor"),
		now:      cfg.Now,
		inbox:    make(chan message, 64),
		stopped:  make(chan struct{}),
		watchers: make(map[int]chan Snapshot),
	}
	m.publish()
	return m
}

// message is anything handled on the loop.
type message any

type (
	selectMsg   struct{ id string }
	deselectMsg struct{}
	filterMsg   struct{ filter task.State }
	dismissMsg  struct{}
	refreshMsg  struct{}

	pollResult struct {
		filter task.State
		tasks  []task.Task
		err    error
		took   time.Duration
	}
	detailResult struct {
		id   string
		task task.Task
		err  error
	}
	resumeResult struct {
		id  string
		err error
	}
)

// Run drives the monitor until ctx is canceled. It may be called once.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("monitor already started")
	}
	defer func() {
		close(m.stopped)
		m.poller.Stop()
		m.consumer.Close()
		m.helpers.Wait()
		m.closeWatchers()
	}()

	m.log.Info("monitor started", "interval", m.poller.Interval())
	m.poller.Start(ctx)

	for {
		var updates <-chan stream.Update
		if m.sub != nil {
			updates = m.sub.Updates()
		}

		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return nil

		case <-m.poller.C():
			m.startPoll(ctx)

		case u, ok := <-updates:
			if !ok {
				m.sub = nil
				m.connected = false
				m.publish()
				continue
			}
			m.handleUpdate(ctx, u)
			m.publish()

		case msg := <-m.inbox:
			m.handle(ctx, msg)
			m.publish()
		}
	}
}

func (m *Monitor) handle(ctx context.Context, msg message) {
	switch msg := msg.(type) {
	case selectMsg:
		m.handleSelect(ctx, msg.id)
	case deselectMsg:
		m.handleDeselect(ctx)
	case filterMsg:
		if m.dir.SetFilter(msg.filter) {
			m.log.Debug("filter changed", "filter", msg.filter)
			m.poller.Trigger()
		}
	case dismissMsg:
		m.lastError = nil
	case refreshMsg:
		m.poller.Trigger()
		if id := m.guard.Current(); id != "" {
			m.startFetch(ctx, id)
		}
	case pollResult:
		m.handlePoll(msg)
		if m.pollAgain {
			m.pollAgain = false
			m.startPoll(ctx)
		}
	case detailResult:
		m.handleDetail(msg)
	case resumeResult:
		m.handleResume(ctx, msg)
	}
}

func (m *Monitor) handleSelect(ctx context.Context, id string) {
	change, err := m.guard.Select(id)
	if err != nil || !change.Changed() {
		return
	}

	var summary *task.Task
	if t, ok := m.dir.Get(id); ok {
		summary = &t
	}
	m.selected = m.policy.Seed(id, summary)
	m.latestEvent = nil
	m.connected = false
	m.sub = m.consumer.Open(ctx, id)
	m.log.Debug("selected", "task", id, "previous", change.Previous)
	m.startFetch(ctx, id)
}

func (m *Monitor) handleDeselect(ctx context.Context) {
	change := m.guard.Deselect()
	if change.Previous == "" {
		return
	}
	m.consumer.Open(ctx, "")
	m.sub = nil
	m.selected = nil
	m.latestEvent = nil
	m.connected = false
	m.log.Debug("deselected", "task", change.Previous)
}

func (m *Monitor) handleUpdate(ctx context.Context, u stream.Update) {
	m.connected = u.Connected
	ev := u.Event
	if ev == nil {
		return
	}

	selectedID := m.guard.Current()
	m.latestEvent = ev

	switch m.policy.MergeStreamEvent(selectedID, ev) {
	case reconcile.Refetch:
		m.startFetch(ctx, selectedID)
	default:
		if ev.Kind == stream.KindFailed && ev.TaskID == "" {
			m.setNotice(&Notice{Kind: NoticeStream, Message: ev.Message, TaskID: selectedID, At: m.now()})
			return
		}
		m.log.Debug("ignoring stream event", "event", ev.String(), "selected", selectedID)
	}
}

func (m *Monitor) startPoll(ctx context.Context) {
	if m.polling {
		m.pollAgain = true
		return
	}
	m.polling = true
	filter := m.dir.Filter()

	m.spawn(ctx, func() message {
		start := time.Now()
		tasks, err := m.dir.Fetch(ctx, filter)
		return pollResult{filter: filter, tasks: tasks, err: err, took: time.Since(start)}
	})
}

func (m *Monitor) handlePoll(r pollResult) {
	m.polling = false
	if errors.Is(r.err, context.Canceled) {
		return
	}
	m.metrics.ObservePoll(r.took, r.err, len(r.tasks))

	if r.filter != m.dir.Filter() {
		m.log.Debug("discarding poll for stale filter", "filter", r.filter)
		return
	}
	if r.err != nil {
		m.log.Warn("poll failed", "error", r.err)
		m.setNotice(noticeFor(r.err, "", m.now()))
		return
	}

	selectedID := m.guard.Current()
	m.dir.Apply(r.tasks, selectedID)
	m.lastPoll = m.now()
	if m.lastError != nil && m.lastError.Kind == NoticeTransport && m.lastError.TaskID == "" {
		m.lastError = nil
	}
	if merged, ok := m.policy.MergePollUpdate(m.selected, selectedID, r.tasks); ok {
		m.selected = merged
	}
}

func (m *Monitor) startFetch(ctx context.Context, id string) {
	m.spawn(ctx, func() message {
		t, err := m.fetcher.Fetch(ctx, id)
		return detailResult{id: id, task: t, err: err}
	})
}

func (m *Monitor) handleDetail(r detailResult) {
	if errors.Is(r.err, context.Canceled) {
		return
	}
	m.metrics.ObserveDetailFetch(r.err)

	selectedID := m.guard.Current()
	if r.err != nil {
		m.log.Warn("detail fetch failed", "task", r.id, "error", r.err)
		if r.id == selectedID {
			m.setNotice(noticeFor(r.err, r.id, m.now()))
		}
		return
	}

	if _, ok := m.dir.Get(r.id); ok {
		row := r.task.Clone()
		row.Tests, row.Metrics = nil, nil
		m.dir.Upsert(row)
	}
	if merged, ok := m.policy.MergeFetchedDetail(m.selected, selectedID, r.task); ok {
		m.selected = merged
	}
}

func (m *Monitor) handleResume(ctx context.Context, r resumeResult) {
	if r.err != nil {
		m.setNotice(noticeFor(r.err, r.id, m.now()))
		return
	}
	if m.lastError != nil && m.lastError.TaskID == r.id {
		m.lastError = nil
	}
	m.poller.Trigger()
	if m.guard.Current() == r.id {
		if m.sub == nil || !m.connected {
			m.sub = m.consumer.Open(ctx, r.id)
		}
		m.startFetch(ctx, r.id)
	}
}

func (m *Monitor) setNotice(n *Notice) {
	m.lastError = n
	m.metrics.IncNotice(string(n.Kind))
}

// spawn runs fn off the loop and posts its result back.
func (m *Monitor) spawn(ctx context.Context, fn func() message) {
	m.helpers.Add(1)
	go func() {
		defer m.helpers.Done()
		msg := fn()
		select {
		case m.inbox <- msg:
		case <-m.stopped:
		case <-ctx.Done():
		}
	}()
}

// post hands a command to the loop. Commands posted before Run are queued.
func (m *Monitor) post(msg message) error {
	select {
	case <-m.stopped:
		return ErrNotRunning
	default:
	}
	select {
	case m.inbox <- msg:
		return nil
	case <-m.stopped:
		return ErrNotRunning
	}
}

// Select opens id for detailed viewing. Selecting the current task again
// does nothing.
func (m *Monitor) Select(id string) error {
	if id == "" {
		return selection.ErrEmptyID
	}
	return m.post(selectMsg{id: id})
}

// Deselect closes the detail view.
func (m *Monitor) Deselect() error {
	return m.post(deselectMsg{})
}

// SetFilter changes the lifecycle filter and refreshes immediately.
func (m *Monitor) SetFilter(f task.State) error {
	return m.post(filterMsg{filter: f})
}

// DismissError clears the current notice.
func (m *Monitor) DismissError() error {
	return m.post(dismissMsg{})
}

// Refresh polls now and re-fetches the selected task.
func (m *Monitor) Refresh() error {
	return m.post(refreshMsg{})
}

// Resume asks the gateway to resume a failed task. The call runs on the
// caller's goroutine; its outcome is also reflected in the next snapshot.
func (m *Monitor) Resume(ctx context.Context, id string) (*api.ResumeResponse, error) {
	if id == "" {
		return nil, selection.ErrEmptyID
	}
	resp, err := m.api.ResumeTask(ctx, id)
	if perr := m.post(resumeResult{id: id, err: err}); perr != nil && err == nil {
		m.log.Debug("resume result not delivered", "task", id, "error", perr)
	}
	return resp, err
}

// Snapshot returns the latest published state.
func (m *Monitor) Snapshot() Snapshot {
	return *m.snapshot.Load()
}

// Watch returns a channel that receives every published snapshot. A slow
// reader only sees the latest one. cancel stops delivery and closes the
// channel.
func (m *Monitor) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	ch <- m.Snapshot()

	m.watchMu.Lock()
	if m.watchers == nil {
		m.watchMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.watchMu.Lock()
			defer m.watchMu.Unlock()
			if c, ok := m.watchers[id]; ok {
				delete(m.watchers, id)
				close(c)
			}
		})
	}
}

// publish copies loop state into a new snapshot and notifies watchers.
func (m *Monitor) publish() {
	m.version++
	snap := &Snapshot{
		Tasks:      m.dir.Tasks(),
		SelectedID: m.guard.Current(),
		Connected:  m.connected,
		LastError:  m.lastError,
		Filter:     m.dir.Filter(),
		Location:   m.router.Location(),
		LastPoll:   m.lastPoll,
		Version:    m.version,
	}
	if m.selected != nil {
		sel := m.selected.Clone()
		snap.Selected = &sel
	}
	if m.latestEvent != nil {
		ev := *m.latestEvent
		snap.LatestEvent = &ev
	}
	if m.lastError != nil {
		n := *m.lastError
		snap.LastError = &n
	}
	m.snapshot.Store(snap)

	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- *snap
	}
}

func (m *Monitor) closeWatchers() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for id, ch := range m.watchers {
		close(ch)
		delete(m.watchers, id)
	}
	m.watchers = nil
}
