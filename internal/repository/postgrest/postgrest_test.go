package postgrest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/airflowiq/hub/internal/config"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]url.Values) {
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		seen = append(seen, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := New(
		config.PostgRESTConfig{URL: srv.URL, APIKey: "anon-key", Timeout: 2 * time.Second},
		config.BackendConfig{ReadingsTable: "sensor_logs", DevicesTable: "devices"},
	)
	return client, &seen
}

func TestQueryReadingsBuildsFilters(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/sensor_logs", r.URL.Path)
		w.Write([]byte(`[
			{"id":1,"device_id":"dev-a","recorded_at":"2024-03-01T10:05:00+00:00","temp_c":21.5,"humidity":null,"pressure_pa":101300,"windSpeed":1.5,"rfid":null},
			{"id":2,"device_id":"dev-b","recorded_at":"2024-03-01T10:06:00.123456","temp_c":null,"humidity":45,"pressure_pa":null,"windSpeed":null,"rfid":"tag-1"}
		]`))
	})

	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	readings, err := client.QueryReadings(context.Background(), models.ReadingQuery{
		DeviceIDs: []string{"dev-a", "dev-b"},
		Since:     since,
		Ascending: true,
	})
	require.NoError(t, err)
	require.Len(t, readings, 2)

	q := (*seen)[0]
	assert.Equal(t, `in.("dev-a","dev-b")`, q.Get("device_id"))
	assert.Equal(t, "gte.2024-03-01T10:00:00Z", q.Get("recorded_at"))
	assert.Equal(t, "recorded_at.asc", q.Get("order"))

	assert.Equal(t, 1.5, *readings[0].WindSpeed)
	assert.Nil(t, readings[0].Humidity)
	assert.Equal(t, "tag-1", *readings[1].RFID)
	assert.Equal(t, 6, readings[1].RecordedAt.Minute())
}

func TestQueryReadingsUnboundedOmitsCutoff(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	readings, err := client.QueryReadings(context.Background(), models.ReadingQuery{DeviceIDs: []string{"dev-a"}, Ascending: true})
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.Empty(t, (*seen)[0].Get("recorded_at"))
}

func TestMostRecentTimestamp(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"recorded_at":"2024-02-28T23:15:00Z"}]`))
	})

	ts, ok, err := client.MostRecentTimestamp(context.Background(), []string{"dev-a"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 28, 23, 15, 0, 0, time.UTC), ts)

	q := (*seen)[0]
	assert.Equal(t, "recorded_at.desc", q.Get("order"))
	assert.Equal(t, "1", q.Get("limit"))
}

func TestMostRecentTimestampNone(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, ok, err := client.MostRecentTimestamp(context.Background(), []string{"dev-a"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnership(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/devices", r.URL.Path)
		if r.URL.Query().Get("id") != "" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"id":"dev-a"},{"id":"dev-b"}]`))
	})

	ids, err := client.OwnedDeviceIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-a", "dev-b"}, ids)
	assert.Equal(t, "eq.user-1", (*seen)[0].Get("owner_id"))

	owned, err := client.IsDeviceOwner(context.Background(), "dev-z", "user-1")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Equal(t, "eq.dev-z", (*seen)[1].Get("id"))
}

func TestServerErrorIsTransport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"column does not exist"}`))
	})

	_, err := client.QueryReadings(context.Background(), models.ReadingQuery{DeviceIDs: []string{"dev-a"}})
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}
