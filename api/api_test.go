package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airflowiq/hub/api/middleware"
	"github.com/airflowiq/hub/api/resources"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

type fakeFetcher struct {
	scope   models.Scope
	window  models.Window
	multiID []string
	err     error
}

func (f *fakeFetcher) FetchSeries(_ context.Context, _ string, scope models.Scope, window models.Window) (models.Series, error) {
	f.scope, f.window = scope, window
	if f.err != nil {
		return models.Series{}, f.err
	}
	return models.Series{DeviceIDs: scope.DeviceIDs, Window: window, Readings: []models.SensorReading{}}, nil
}

func (f *fakeFetcher) FetchAverages(_ context.Context, _ string, scope models.Scope, window models.Window) (models.Averages, error) {
	f.scope, f.window = scope, window
	if f.err != nil {
		return models.Averages{}, f.err
	}
	ws := 1.5
	return models.Averages{DeviceIDs: scope.DeviceIDs, Window: window, WindSpeed: &ws, Samples: 3}, nil
}

func (f *fakeFetcher) FetchMultiDeviceSeries(_ context.Context, _ string, ids []string, window models.Window) (models.MultiSeries, error) {
	f.multiID, f.window = ids, window
	if len(ids) == 0 {
		return models.MultiSeries{}, errors.NewNoDevicesError("no devices", nil)
	}
	series := make(map[string]models.Series, len(ids))
	for _, id := range ids {
		series[id] = models.Series{DeviceIDs: []string{id}, Window: window, Readings: []models.SensorReading{
			{DeviceID: id, RecordedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		}}
	}
	return models.MultiSeries{DeviceIDs: ids, Window: window, Series: series}, nil
}

type stubDevices struct {
	devices map[string]*models.Device
}

func (s *stubDevices) OwnedDeviceIDs(context.Context, string) ([]string, error) { return nil, nil }

func (s *stubDevices) IsDeviceOwner(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubDevices) Create(_ context.Context, d *models.Device) error {
	s.devices[d.ID] = d
	return nil
}

func (s *stubDevices) Get(_ context.Context, id string) (*models.Device, error) {
	if d, ok := s.devices[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, errors.NewNotFoundError("device not found", nil)
}

func (s *stubDevices) GetByMAC(_ context.Context, mac string) (*models.Device, error) {
	for _, d := range s.devices {
		if d.DeviceMAC == mac {
			copied := *d
			return &copied, nil
		}
	}
	return nil, errors.NewNotFoundError("device not found", nil)
}

func (s *stubDevices) ListByOwner(_ context.Context, owner string) ([]*models.Device, error) {
	var out []*models.Device
	for _, d := range s.devices {
		if d.OwnerID == owner {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDevices) Update(context.Context, *models.Device) error { return nil }

func (s *stubDevices) Claim(context.Context, string, string) (bool, error) { return true, nil }

func (s *stubDevices) Unclaim(context.Context, string, string) error { return nil }

type stubProducts struct{}

func (stubProducts) ListActive(context.Context) ([]*models.Product, error) {
	return []*models.Product{{ID: "p1", Name: "Sensor Kit", PriceCents: 1000, Currency: "USD", Active: true}}, nil
}

func (p stubProducts) GetByIDs(ctx context.Context, _ []string) ([]*models.Product, error) {
	return p.ListActive(ctx)
}

type stubOrders struct {
	orders map[string]*models.Order
}

func (s *stubOrders) CreateWithItems(_ context.Context, o *models.Order) error {
	s.orders[o.ID] = o
	return nil
}

func (s *stubOrders) Get(_ context.Context, id string) (*models.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, errors.NewNotFoundError("order not found", nil)
}

func (s *stubOrders) ListByCustomer(context.Context, string) ([]*models.Order, error) {
	return nil, nil
}

type stubProfiles struct{}

func (stubProfiles) Get(_ context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id, FullName: "Ada"}, nil
}

func (stubProfiles) UpdateFullName(context.Context, string, string) error { return nil }

type testEnv struct {
	router  *Router
	fetcher *fakeFetcher
	token   string
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	devices := &stubDevices{devices: map[string]*models.Device{
		"d1":    {ID: "d1", Name: "Attic", OwnerID: "user-1", Claimed: true},
		"d2":    {ID: "d2", Name: "Basement", OwnerID: "user-1", Claimed: true},
		"taken": {ID: "taken", DeviceMAC: "AA:BB", OwnerID: "user-2", Claimed: true},
	}}
	svc := service.New(devices, stubProducts{}, &stubOrders{orders: map[string]*models.Order{}}, stubProfiles{})

	fetcher := &fakeFetcher{}
	res := resources.NewResources(fetcher, svc)
	res.SetHealthCheck(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	token, err := middleware.IssueToken(testSecret, "user-1", nil, time.Hour)
	require.NoError(t, err)

	return &testEnv{
		router:  NewRouter(res, middleware.NewJWTMiddleware(testSecret)),
		fetcher: fetcher,
		token:   token,
	}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	env := setupRouter(t)
	env.token = ""
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v1/readings", nil).Code)
}

func TestGetSeriesScopes(t *testing.T) {
	env := setupRouter(t)

	resp := env.do(http.MethodGet, "/api/v1/readings?device_id=d1&window_hours=6", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, models.SingleDevice("d1"), env.fetcher.scope)
	assert.Equal(t, models.LastHours(6), env.fetcher.window)

	resp = env.do(http.MethodGet, "/api/v1/readings", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, models.AllOwnedDevices(), env.fetcher.scope)
	assert.Equal(t, models.LastHours(models.DefaultWindowHours), env.fetcher.window)

	resp = env.do(http.MethodGet, "/api/v1/readings/averages?device_id=d1&device_id=d2&window_hours=all", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, models.DeviceSet("d1", "d2"), env.fetcher.scope)
	assert.Equal(t, models.AllTime, env.fetcher.window)

	var avg models.Averages
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&avg))
	require.NotNil(t, avg.WindSpeed)
	assert.Equal(t, 3, avg.Samples)

	resp = env.do(http.MethodGet, "/api/v1/readings?window_hours=-3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.do(http.MethodGet, "/api/v1/readings?window_hours=3000000", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		typ  string
	}{
		{errors.NewAccessDeniedError("not yours", nil), http.StatusForbidden, "access_denied"},
		{errors.NewNoDevicesError("no devices", nil), http.StatusNotFound, "no_devices"},
		{errors.NewTransportError("backend down", nil), http.StatusBadGateway, "transport"},
		{assert.AnError, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			env := setupRouter(t)
			env.fetcher.err = tt.err
			resp := env.do(http.MethodGet, "/api/v1/readings?device_id=x", nil)
			assert.Equal(t, tt.code, resp.Code)

			var body errors.APIError
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.typ, string(body.Type))
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestMultiDefaultsToOwnedDevices(t *testing.T) {
	env := setupRouter(t)

	resp := env.do(http.MethodGet, "/api/v1/readings/multi?window_hours=24", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.ElementsMatch(t, []string{"d1", "d2"}, env.fetcher.multiID)

	resp = env.do(http.MethodGet, "/api/v1/readings/export?device_id=d1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, []string{"d1"}, env.fetcher.multiID)
}

func TestClaimConflict(t *testing.T) {
	env := setupRouter(t)
	resp := env.do(http.MethodPost, "/api/v1/devices/claim", models.ClaimRequest{DeviceMAC: "AA:BB"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = env.do(http.MethodPost, "/api/v1/devices/claim", models.ClaimRequest{DeviceMAC: "00:00"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeviceOwnership(t *testing.T) {
	env := setupRouter(t)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/devices/d1", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/v1/devices/taken", nil).Code)

	resp := env.do(http.MethodPost, "/api/v1/devices", models.Device{Name: "Garage"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var created models.Device
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "user-1", created.OwnerID)
}

func TestPlaceOrderAndReceipt(t *testing.T) {
	env := setupRouter(t)

	resp := env.do(http.MethodPost, "/api/v1/orders", models.PlaceOrderRequest{
		Items: []models.CartItem{{ProductID: "p1", Qty: 2}},
		Shipping: models.ShippingInfo{
			Name: "Ada", Line1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Phone: "555",
		},
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var order models.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, int64(2000), order.SubtotalCents)
	assert.Equal(t, int64(160), order.TaxCents)
	assert.Equal(t, int64(2000+160+999), order.TotalCents)

	resp = env.do(http.MethodGet, "/api/v1/orders/"+order.ID+"/receipt", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))

	resp = env.do(http.MethodPost, "/api/v1/orders", models.PlaceOrderRequest{Items: []models.CartItem{{ProductID: "p1", Qty: 1}}})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProfile(t *testing.T) {
	env := setupRouter(t)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/profile", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/v1/profile", models.Profile{FullName: " "}).Code)

	resp := env.do(http.MethodPut, "/api/v1/profile", models.Profile{FullName: "Ada L."})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Ada L.")
}
