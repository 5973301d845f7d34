// FilePath: api/resources/api.resource.readings.go
package resources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/export"
	"github.com/airflowiq/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// ReadingFetcher is the slice of the fetcher the readings endpoints need
type ReadingFetcher interface {
	FetchSeries(ctx context.Context, userID string, scope models.Scope, window models.Window) (models.Series, error)
	FetchAverages(ctx context.Context, userID string, scope models.Scope, window models.Window) (models.Averages, error)
	FetchMultiDeviceSeries(ctx context.Context, userID string, deviceIDs []string, window models.Window) (models.MultiSeries, error)
}

// DeviceLister names the caller's devices for multi-device views
type DeviceLister interface {
	List(ctx context.Context, userID string) ([]*models.Device, error)
}

// ReadingHandlers encapsulates the time-series HTTP handlers
type ReadingHandlers struct {
	fetcher ReadingFetcher
	devices DeviceLister
}

// @Summary Get readings
// @Description Readings of one device, a set of devices or all owned devices, ascending by recorded_at
// @Tags readings
// @Produce json
// @Param device_id query []string false "Device ID, repeatable; omit for all owned devices"
// @Param window_hours query string false "Window in hours, 0 or all for unbounded (default 24)"
// @Success 200 {object} models.Series
// @Failure 403 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 502 {object} errors.APIError
// @Router /readings [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetSeries(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	filters, window, apiErr := decodeReadingFilters(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	series, err := h.fetcher.FetchSeries(r.Context(), userID, models.ScopeFromIDs(filters.DeviceIDs), window)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to fetch readings").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, series)
}

// @Summary Get averages
// @Description Per-field means over the window and the latest RFID tag
// @Tags readings
// @Produce json
// @Param device_id query []string false "Device ID, repeatable; omit for all owned devices"
// @Param window_hours query string false "Window in hours, 0 or all for unbounded (default 24)"
// @Success 200 {object} models.Averages
// @Router /readings/averages [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetAverages(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	filters, window, apiErr := decodeReadingFilters(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	avg, err := h.fetcher.FetchAverages(r.Context(), userID, models.ScopeFromIDs(filters.DeviceIDs), window)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to fetch averages").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, avg)
}

// @Summary Get per-device readings
// @Description One series per device, fetched concurrently; failed devices come back empty with a failure reason
// @Tags readings
// @Produce json
// @Param device_id query []string false "Device IDs; omit for all owned devices"
// @Param window_hours query string false "Window in hours"
// @Success 200 {object} models.MultiSeries
// @Router /readings/multi [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetMulti(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ms, _, apiErr := h.multi(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, ms)
}

// @Summary Export readings
// @Description XLSX workbook with one sheet per device and a summary sheet
// @Tags readings
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param device_id query []string false "Device IDs; omit for all owned devices"
// @Param window_hours query string false "Window in hours"
// @Success 200 {file} file
// @Router /readings/export [get]
// @Security BearerAuth
func (h *ReadingHandlers) Export(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ms, labels, apiErr := h.multi(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	data, err := export.MultiSeriesXLSX(ms, labels)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to build workbook", err).WithRequestID(requestID))
		return
	}

	filename := fmt.Sprintf("airflow-readings-%s-%s.xlsx", ms.Window, time.Now().UTC().Format("20060102-1504"))
	respondWithFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, data)
}

// multi runs the fan-out over the requested devices, or over every owned
// device when none are named. labels maps ids to device names.
func (h *ReadingHandlers) multi(r *http.Request) (models.MultiSeries, map[string]string, *errors.APIError) {
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		return models.MultiSeries{}, nil, apiErr
	}
	filters, window, apiErr := decodeReadingFilters(r)
	if apiErr != nil {
		return models.MultiSeries{}, nil, apiErr
	}

	owned, err := h.devices.List(r.Context(), userID)
	if err != nil {
		return models.MultiSeries{}, nil, toAPIError(err, "failed to list devices")
	}
	labels := make(map[string]string, len(owned))
	for _, d := range owned {
		labels[d.ID] = d.Name
	}

	ids := filters.DeviceIDs
	if len(ids) == 0 {
		for _, d := range owned {
			ids = append(ids, d.ID)
		}
	}

	ms, err := h.fetcher.FetchMultiDeviceSeries(r.Context(), userID, ids, window)
	if err != nil {
		return models.MultiSeries{}, nil, toAPIError(err, "failed to fetch readings")
	}
	return ms, labels, nil
}
