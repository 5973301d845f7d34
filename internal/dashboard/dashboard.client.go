package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/config"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/go-resty/resty/v2"
)

// HubClient reads series and averages from a running hub over HTTP. The
// user is the subject of the access token; the userID argument is ignored.
type HubClient struct {
	http *resty.Client
}

func NewHubClient(cfg config.DashboardConfig) *HubClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.HubURL, "/")+"/api/v1").
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetHeader("Accept", "application/json")
	if cfg.AccessToken != "" {
		client.SetAuthToken(cfg.AccessToken)
	}
	return &HubClient{http: client}
}

func (c *HubClient) FetchSeries(ctx context.Context, _ string, scope models.Scope, window models.Window) (models.Series, error) {
	var series models.Series
	if err := c.get(ctx, "/readings", scope, window, &series); err != nil {
		return models.Series{}, err
	}
	return series, nil
}

func (c *HubClient) FetchAverages(ctx context.Context, _ string, scope models.Scope, window models.Window) (models.Averages, error) {
	var avg models.Averages
	if err := c.get(ctx, "/readings/averages", scope, window, &avg); err != nil {
		return models.Averages{}, err
	}
	return avg, nil
}

// Devices lists the caller's devices, used to populate the selector
func (c *HubClient) Devices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&devices).
		SetError(&errors.APIError{}).
		Get("/devices")
	if err := responseError(resp, err); err != nil {
		return nil, err
	}
	return devices, nil
}

func (c *HubClient) get(ctx context.Context, path string, scope models.Scope, window models.Window, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&errors.APIError{}).
		SetQueryParam("window_hours", strconv.Itoa(window.Hours))
	if scope.Kind != models.ScopeAllOwned {
		req.SetQueryParamsFromValues(map[string][]string{"device_id": scope.DeviceIDs})
	}
	resp, err := req.Get(path)
	return responseError(resp, err)
}

// responseError restores the hub's typed error from the response body
func responseError(resp *resty.Response, err error) error {
	if err != nil {
		return errors.NewTransportError("hub request failed", err)
	}
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*errors.APIError); ok && apiErr.Type != "" {
		return apiErr
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return errors.NewAuthError("hub rejected the access token", nil)
	}
	return errors.NewTransportError("hub returned "+resp.Status(), nil)
}
