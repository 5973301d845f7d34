// FilePath: internal/fetcher/fetcher.go
package fetcher

import (
	"context"
	"time"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/monitoring"
	"github.com/airflowiq/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const (
	modeSeries   = "series"
	modeAverages = "averages"
	modeMulti    = "multi"
)

// AveragesCache is consulted by FetchAverages after scope resolution
type AveragesCache interface {
	Get(ctx context.Context, window models.Window, deviceIDs []string) (models.Averages, bool)
	Put(ctx context.Context, avg models.Averages)
}

// Fetcher retrieves windowed readings for a user's devices. It is safe for
// concurrent use; all state lives in the collaborators.
type Fetcher struct {
	readings repository.ReadingStore
	owners   repository.OwnershipStore
	cache    AveragesCache
	now      func() time.Time
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithClock overrides the wall clock used to compute cutoffs
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithAveragesCache enables caching of averages results
func WithAveragesCache(c AveragesCache) Option {
	return func(f *Fetcher) {
		f.cache = c
	}
}

func New(readings repository.ReadingStore, owners repository.OwnershipStore, opts ...Option) *Fetcher {
	f := &Fetcher{
		readings: readings,
		owners:   owners,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchSeries resolves the scope, then the window (with fallback), and
// returns readings in ascending recorded_at order. An empty series is the
// no-data outcome, not an error.
func (f *Fetcher) FetchSeries(ctx context.Context, userID string, scope models.Scope, window models.Window) (models.Series, error) {
	start := time.Now()
	ids, err := f.resolveScope(ctx, userID, scope)
	if err != nil {
		monitoring.ObserveFetch(modeSeries, monitoring.ResultError, time.Since(start))
		return models.Series{}, err
	}

	series, err := f.resolveWindow(ctx, ids, window)
	if err != nil {
		monitoring.ObserveFetch(modeSeries, monitoring.ResultError, time.Since(start))
		return models.Series{}, err
	}
	monitoring.ObserveFetch(modeSeries, resultOf(series.NoData()), time.Since(start))
	return series, nil
}

// FetchAverages returns per-field means over the resolved window
func (f *Fetcher) FetchAverages(ctx context.Context, userID string, scope models.Scope, window models.Window) (models.Averages, error) {
	start := time.Now()
	ids, err := f.resolveScope(ctx, userID, scope)
	if err != nil {
		monitoring.ObserveFetch(modeAverages, monitoring.ResultError, time.Since(start))
		return models.Averages{}, err
	}

	if f.cache != nil {
		if avg, ok := f.cache.Get(ctx, window, ids); ok {
			monitoring.ObserveFetch(modeAverages, resultOf(avg.NoData()), time.Since(start))
			return avg, nil
		}
	}

	series, err := f.resolveWindow(ctx, ids, window)
	if err != nil {
		monitoring.ObserveFetch(modeAverages, monitoring.ResultError, time.Since(start))
		return models.Averages{}, err
	}

	avg := Average(series.Readings)
	avg.DeviceIDs = ids
	avg.Window = window
	avg.Fallback = series.Fallback

	if f.cache != nil {
		f.cache.Put(ctx, avg)
	}
	monitoring.ObserveFetch(modeAverages, resultOf(avg.NoData()), time.Since(start))
	return avg, nil
}

// FetchMultiDeviceSeries fans out one single-device fetch per id and joins
// the results once every member has reported. Member failures degrade to an
// empty series; the error return covers invalid arguments only.
func (f *Fetcher) FetchMultiDeviceSeries(ctx context.Context, userID string, deviceIDs []string, window models.Window) (models.MultiSeries, error) {
	if userID == "" {
		return models.MultiSeries{}, errors.NewValidationError("user id is required", nil)
	}
	ids := dedupe(deviceIDs)
	if len(ids) == 0 {
		return models.MultiSeries{}, errors.NewNoDevicesError("no devices selected", nil)
	}

	start := time.Now()
	var result models.MultiSeries
	fan := NewFanOut(window, ids, func(ms models.MultiSeries) {
		result = ms
	})

	type memberResult struct {
		id     string
		series models.Series
		err    error
	}
	results := make(chan memberResult, len(ids))
	for _, id := range ids {
		go func(id string) {
			s, err := f.FetchSeries(ctx, userID, models.SingleDevice(id), window)
			results <- memberResult{id: id, series: s, err: err}
		}(id)
	}

	fan.Start()
	for fan.State() == StatePending {
		r := <-results
		if r.err != nil {
			nuts.L.Warnf("[Fetcher] Device %s dropped from multi-device fetch: %v", r.id, r.err)
		}
		fan.Record(r.id, r.series, r.err)
	}

	monitoring.ObserveFanOut(len(ids), result.Failures)
	monitoring.ObserveFetch(modeMulti, monitoring.ResultSuccess, time.Since(start))
	return result, nil
}

func resultOf(noData bool) string {
	if noData {
		return monitoring.ResultNoData
	}
	return monitoring.ResultSuccess
}

// dedupe drops empty and repeated ids, keeping first-seen order
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// transportErr keeps typed errors intact and wraps foreign ones
func transportErr(msg string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewTransportError(msg, err)
}
