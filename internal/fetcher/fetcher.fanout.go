package fetcher

import (
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
)

// FanOutState is the lifecycle of a multi-device request
type FanOutState int

const (
	StateIdle FanOutState = iota
	StatePending
	StateComplete
)

func (s FanOutState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// FanOut counts outstanding per-device results and joins them when the
// count reaches zero. It moves Idle -> Pending(N) -> Complete and never back;
// a new request needs a new FanOut. Not safe for concurrent use: the owning
// goroutine feeds it results.
type FanOut struct {
	window     models.Window
	ids        []string
	members    map[string]bool
	state      FanOutState
	pending    int
	series     map[string]models.Series
	failures   map[string]string
	onComplete func(models.MultiSeries)
}

func NewFanOut(window models.Window, ids []string, onComplete func(models.MultiSeries)) *FanOut {
	members := make(map[string]bool, len(ids))
	for _, id := range ids {
		members[id] = false
	}
	return &FanOut{
		window:     window,
		ids:        append([]string(nil), ids...),
		members:    members,
		series:     make(map[string]models.Series, len(ids)),
		failures:   make(map[string]string),
		onComplete: onComplete,
	}
}

// Start moves the coordinator to Pending with one slot per device.
// An empty device set completes immediately.
func (f *FanOut) Start() {
	if f.state != StateIdle {
		return
	}
	f.state = StatePending
	f.pending = len(f.members)
	if f.pending == 0 {
		f.complete()
	}
}

// Record stores one member's outcome. A failed member contributes an empty
// series and still counts toward completion. Results for unknown or already
// reported devices, or arriving outside Pending, are ignored. It returns true
// when this call completed the fan-out.
func (f *FanOut) Record(deviceID string, series models.Series, err error) bool {
	if f.state != StatePending {
		return false
	}
	reported, ok := f.members[deviceID]
	if !ok || reported {
		return false
	}
	f.members[deviceID] = true

	if err != nil {
		reason := string(errors.TypeOf(err))
		if reason == "" {
			reason = string(errors.ErrorTypeInternal)
		}
		f.failures[deviceID] = reason
		series = models.Series{
			DeviceIDs: []string{deviceID},
			Window:    f.window,
			Readings:  []models.SensorReading{},
		}
	}
	f.series[deviceID] = series

	f.pending--
	if f.pending == 0 {
		f.complete()
		return true
	}
	return false
}

func (f *FanOut) complete() {
	f.state = StateComplete
	if f.onComplete != nil {
		f.onComplete(f.Result())
	}
}

func (f *FanOut) State() FanOutState { return f.state }

func (f *FanOut) Pending() int { return f.pending }

// Result returns the joined per-device series collected so far
func (f *FanOut) Result() models.MultiSeries {
	series := make(map[string]models.Series, len(f.series))
	for id, s := range f.series {
		series[id] = s
	}
	var failures map[string]string
	if len(f.failures) > 0 {
		failures = make(map[string]string, len(f.failures))
		for id, reason := range f.failures {
			failures[id] = reason
		}
	}
	return models.MultiSeries{
		DeviceIDs: append([]string(nil), f.ids...),
		Window:    f.window,
		Series:    series,
		Failures:  failures,
	}
}
