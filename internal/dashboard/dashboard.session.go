// FilePath: internal/dashboard/dashboard.session.go
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/fetcher"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

// DefaultRefreshInterval is how often the current request is re-issued
const DefaultRefreshInterval = 30 * time.Second

// Source is where the session gets its data: a local Fetcher or a hub client
type Source interface {
	FetchSeries(ctx context.Context, userID string, scope models.Scope, window models.Window) (models.Series, error)
	FetchAverages(ctx context.Context, userID string, scope models.Scope, window models.Window) (models.Averages, error)
}

// View is an immutable snapshot of the dashboard state handed to renderers
type View struct {
	Tag       uint64              `json:"tag"`
	Scope     models.Scope        `json:"scope"`
	Window    models.Window       `json:"window"`
	Loading   bool                `json:"loading"`
	Series    *models.Series      `json:"series,omitempty"`
	Multi     *models.MultiSeries `json:"multi,omitempty"`
	Averages  *models.Averages    `json:"averages,omitempty"`
	Warning   string              `json:"warning,omitempty"`
	Error     string              `json:"error,omitempty"`
	Stale     uint64              `json:"stale"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type commandKind int

const (
	cmdSelect commandKind = iota
	cmdWindow
	cmdRefresh
)

type command struct {
	kind   commandKind
	scope  models.Scope
	window models.Window
}

type resultKind int

const (
	resSeries resultKind = iota
	resMember
	resAverages
)

type result struct {
	tag      uint64
	kind     resultKind
	deviceID string
	series   models.Series
	averages models.Averages
	err      error
}

// Session plays the role of the UI thread: one goroutine owns the active
// request, launches tagged workers and drops results whose tag is stale.
type Session struct {
	source       Source
	userID       string
	refresh      time.Duration
	fetchTimeout time.Duration

	commands chan command
	results  chan result
	done     chan struct{}

	mu   sync.RWMutex
	view View
	subs map[string]chan View

	// owned by the run loop
	runCtx  context.Context
	current View
	tag     uint64
	scope   models.Scope
	window  models.Window
	pending int
	fan     *fetcher.FanOut
	cancel  context.CancelFunc
}

// Option configures a Session
type Option func(*Session)

// WithRefreshInterval sets the auto-refresh period; zero disables it
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Session) {
		s.refresh = d
	}
}

// WithFetchTimeout bounds every worker call
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.fetchTimeout = d
	}
}

// WithInitialSelection sets scope and window before the first request
func WithInitialSelection(scope models.Scope, window models.Window) Option {
	return func(s *Session) {
		s.scope = scope
		s.window = window
	}
}

func NewSession(source Source, userID string, opts ...Option) *Session {
	s := &Session{
		source:       source,
		userID:       userID,
		refresh:      DefaultRefreshInterval,
		fetchTimeout: 30 * time.Second,
		commands:     make(chan command, 16),
		results:      make(chan result, 64),
		done:         make(chan struct{}),
		subs:         make(map[string]chan View),
		scope:        models.AllOwnedDevices(),
		window:       models.LastHours(models.DefaultWindowHours),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = View{Scope: s.scope, Window: s.window}
	s.view = s.current
	return s
}

// Run owns the session state until ctx is cancelled. Commands sent before
// Run starts are queued.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.runCtx = ctx

	var tick <-chan time.Time
	if s.refresh > 0 {
		ticker := time.NewTicker(s.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	nuts.L.Infof("[Dashboard] Session started for user %s (refresh every %v)", s.userID, s.refresh)
	for {
		select {
		case <-ctx.Done():
			if s.cancel != nil {
				s.cancel()
			}
			return ctx.Err()
		case cmd := <-s.commands:
			s.apply(cmd)
		case res := <-s.results:
			s.handle(res)
		case <-tick:
			s.issue(false)
		}
	}
}

// SelectDevice narrows the dashboard to one owned device
func (s *Session) SelectDevice(id string) {
	s.send(command{kind: cmdSelect, scope: models.SingleDevice(id)})
}

// SelectAllDevices shows the union of every owned device
func (s *Session) SelectAllDevices() {
	s.send(command{kind: cmdSelect, scope: models.AllOwnedDevices()})
}

// SelectDevices switches to the multi-device view
func (s *Session) SelectDevices(ids ...string) {
	s.send(command{kind: cmdSelect, scope: models.DeviceSet(ids...)})
}

// SetWindow changes the time range
func (s *Session) SetWindow(w models.Window) {
	s.send(command{kind: cmdWindow, window: w})
}

// Refresh re-issues the current request
func (s *Session) Refresh() {
	s.send(command{kind: cmdRefresh})
}

func (s *Session) send(cmd command) {
	select {
	case s.commands <- cmd:
	case <-s.done:
	}
}

// Snapshot returns the latest published view
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe delivers every published view; slow readers only see the latest.
// The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	id := nuts.NID("sub", 8)

	s.mu.Lock()
	s.subs[id] = ch
	ch <- s.view
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *Session) apply(cmd command) {
	switch cmd.kind {
	case cmdSelect:
		s.scope = cmd.scope
		s.issue(true)
	case cmdWindow:
		s.window = cmd.window
		s.issue(true)
	case cmdRefresh:
		s.issue(false)
	}
}

// issue supersedes whatever is in flight and starts a new tagged request
func (s *Session) issue(reset bool) {
	if s.cancel != nil {
		s.cancel()
	}
	s.tag++
	tag := s.tag
	ctx, cancel := context.WithCancel(s.runCtx)
	s.cancel = cancel

	v := s.current
	v.Tag = tag
	v.Scope = s.scope
	v.Window = s.window
	v.Error = ""
	if reset {
		v.Series = nil
		v.Multi = nil
		v.Averages = nil
		v.Warning = ""
	}

	window := s.window
	var ids []string
	if s.scope.Kind == models.ScopeDeviceSet {
		ids = models.NormalizeIDs(s.scope.DeviceIDs)
		if len(ids) == 0 {
			// nothing to fetch, so no worker would ever complete the request
			s.fan = nil
			s.pending = 0
			v.Series, v.Multi, v.Averages = nil, nil, nil
			v.Warning = ""
			v.Loading = false
			v.UpdatedAt = time.Now()
			s.current = v
			s.fail("devices", errors.NewNoDevicesError("no devices selected", nil))
			s.publish()
			return
		}
		v.Series = nil
	} else {
		v.Multi = nil
	}

	v.Loading = true
	s.current = v

	if ids != nil {
		s.fan = fetcher.NewFanOut(window, ids, func(ms models.MultiSeries) {
			s.current.Multi = &ms
		})
		s.fan.Start()
		for _, id := range ids {
			go s.work(ctx, tag, resMember, id, models.SingleDevice(id), window)
		}
	} else {
		s.fan = nil
		go s.work(ctx, tag, resSeries, "", s.scope, window)
	}
	go s.work(ctx, tag, resAverages, "", s.scope, window)
	s.pending = 2

	s.publish()
}

func (s *Session) work(ctx context.Context, tag uint64, kind resultKind, deviceID string, scope models.Scope, window models.Window) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	r := result{tag: tag, kind: kind, deviceID: deviceID}
	if kind == resAverages {
		r.averages, r.err = s.source.FetchAverages(ctx, s.userID, scope, window)
	} else {
		r.series, r.err = s.source.FetchSeries(ctx, s.userID, scope, window)
	}

	select {
	case s.results <- r:
	case <-s.done:
	}
}

func (s *Session) handle(r result) {
	if r.tag != s.tag {
		s.current.Stale++
		monitoring.IncStaleResult()
		nuts.L.Infof("[Dashboard] Dropping result of superseded request %d (active %d)", r.tag, s.tag)
		s.publish()
		return
	}

	switch r.kind {
	case resSeries:
		if r.err != nil {
			s.current.Series = nil
			s.fail("series", r.err)
		} else {
			series := r.series
			s.current.Series = &series
		}
		s.pending--

	case resMember:
		if r.err != nil {
			nuts.L.Warnf("[Dashboard] Device %s: %v", r.deviceID, r.err)
		}
		if s.fan != nil && s.fan.Record(r.deviceID, r.series, r.err) {
			s.pending--
		}

	case resAverages:
		if r.err != nil {
			s.current.Averages = nil
			s.current.Warning = ""
			s.fail("averages", r.err)
		} else {
			avg := r.averages
			s.current.Averages = &avg
			s.current.Warning = FilterWarning(avg, s.window)
			if s.current.Warning != "" {
				nuts.L.Warnf("[Dashboard] %s", s.current.Warning)
			}
		}
		s.pending--
	}

	s.current.Loading = s.pending > 0
	s.current.UpdatedAt = time.Now()
	s.publish()
}

func (s *Session) fail(what string, err error) {
	nuts.L.Errorf("[Dashboard] Failed to fetch %s: %v", what, err)
	if apiErr, ok := errors.As(err); ok {
		s.current.Error = apiErr.Message
		return
	}
	s.current.Error = err.Error()
}

func (s *Session) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = s.current
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.view:
		default:
		}
	}
}
