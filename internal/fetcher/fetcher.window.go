package fetcher

import (
	"context"

	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

// resolveWindow queries [now-D, now) and, when a bounded window comes back
// empty, re-anchors the window at the most recent reading of the same
// devices. The fallback query is terminal even if it returns nothing.
func (f *Fetcher) resolveWindow(ctx context.Context, ids []string, window models.Window) (models.Series, error) {
	series := models.Series{
		DeviceIDs: ids,
		Window:    window,
		Readings:  []models.SensorReading{},
	}

	if !window.Bounded() {
		rows, err := f.readings.QueryReadings(ctx, models.ReadingQuery{DeviceIDs: ids, Ascending: true})
		if err != nil {
			return models.Series{}, transportErr("failed to query readings", err)
		}
		series.Readings = nonNil(rows)
		return series, nil
	}

	cutoff := window.CutoffFrom(f.now())
	series.Cutoff = &cutoff
	rows, err := f.readings.QueryReadings(ctx, models.ReadingQuery{DeviceIDs: ids, Since: cutoff, Ascending: true})
	if err != nil {
		return models.Series{}, transportErr("failed to query readings", err)
	}
	if len(rows) > 0 {
		series.Readings = rows
		return series, nil
	}

	latest, ok, err := f.readings.MostRecentTimestamp(ctx, ids)
	if err != nil {
		return models.Series{}, transportErr("failed to query most recent reading", err)
	}
	if !ok {
		return series, nil
	}

	fallback := window.CutoffFrom(latest)
	rows, err = f.readings.QueryReadings(ctx, models.ReadingQuery{DeviceIDs: ids, Since: fallback, Ascending: true})
	if err != nil {
		return models.Series{}, transportErr("failed to query fallback window", err)
	}

	nuts.L.Infof("[Fetcher] No readings since %s for %v, using window ending at last reading %s (%d rows)",
		cutoff.Format("2006-01-02 15:04"), ids, latest.Format("2006-01-02 15:04"), len(rows))
	monitoring.IncFallback()

	series.Cutoff = &fallback
	series.Fallback = true
	series.Readings = nonNil(rows)
	return series, nil
}

func nonNil(rows []models.SensorReading) []models.SensorReading {
	if rows == nil {
		return []models.SensorReading{}
	}
	return rows
}
