package fetcher

import (
	"testing"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanOutCompletesExactlyOnce(t *testing.T) {
	calls := 0
	var got models.MultiSeries
	fan := NewFanOut(models.LastHours(6), []string{"A", "B", "C"}, func(ms models.MultiSeries) {
		calls++
		got = ms
	})
	assert.Equal(t, StateIdle, fan.State())

	// results before Start are ignored
	assert.False(t, fan.Record("A", models.Series{}, nil))

	fan.Start()
	assert.Equal(t, StatePending, fan.State())
	assert.Equal(t, 3, fan.Pending())

	rows := []models.SensorReading{{DeviceID: "C"}}
	assert.False(t, fan.Record("C", models.Series{DeviceIDs: []string{"C"}, Readings: rows}, nil))
	assert.False(t, fan.Record("B", models.Series{}, errors.NewTransportError("timeout", nil)))
	assert.False(t, fan.Record("C", models.Series{}, nil), "duplicate report must not count")
	assert.False(t, fan.Record("Z", models.Series{}, nil), "unknown device must not count")
	assert.Equal(t, 1, fan.Pending())
	assert.Equal(t, 0, calls)

	assert.True(t, fan.Record("A", models.Series{DeviceIDs: []string{"A"}}, nil))
	assert.Equal(t, StateComplete, fan.State())
	assert.Equal(t, 1, calls)

	// late arrivals after completion change nothing
	assert.False(t, fan.Record("B", models.Series{}, nil))
	fan.Start()
	assert.Equal(t, 1, calls)

	require.Len(t, got.Series, 3)
	assert.Equal(t, []string{"A", "B", "C"}, got.DeviceIDs)
	assert.True(t, got.Series["B"].NoData())
	assert.Equal(t, "transport", got.Failures["B"])
	assert.Len(t, got.Series["C"].Readings, 1)

	ordered := got.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"B"}, ordered[1].DeviceIDs)
}

func TestFanOutEmptySetCompletesOnStart(t *testing.T) {
	calls := 0
	fan := NewFanOut(models.AllTime, nil, func(models.MultiSeries) { calls++ })
	fan.Start()
	assert.Equal(t, StateComplete, fan.State())
	assert.Equal(t, 1, calls)
}

func TestFanOutForeignErrorReason(t *testing.T) {
	fan := NewFanOut(models.AllTime, []string{"A"}, nil)
	fan.Start()
	fan.Record("A", models.Series{}, assert.AnError)
	assert.Equal(t, "internal", fan.Result().Failures["A"])
}
