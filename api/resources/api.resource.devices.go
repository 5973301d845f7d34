// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/service"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	devices *service.DeviceService
}

// @Summary List devices
// @Description Devices owned by the caller, newest first
// @Tags devices
// @Produce json
// @Success 200 {array} models.Device
// @Router /devices [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	devices, err := h.devices.List(r.Context(), userID)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list devices").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, devices)
}

// @Summary Add a device
// @Tags devices
// @Accept json
// @Produce json
// @Param device body models.Device true "Device name and location"
// @Success 201 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Router /devices [post]
// @Security BearerAuth
func (h *DeviceHandlers) CreateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	device.ID = ""

	if err := h.devices.Create(r.Context(), userID, &device); err != nil {
		respondWithError(w, toAPIError(err, "failed to create device").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusCreated, device)
}

// @Summary Get a device
// @Tags devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} models.Device
// @Failure 403 {object} errors.APIError
// @Router /devices/{id} [get]
// @Security BearerAuth
func (h *DeviceHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	device, err := h.devices.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to get device").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Update a device
// @Description Change the name and HVAC location of one of the caller's devices
// @Tags devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param update body models.DeviceUpdate true "Fields to change"
// @Success 200 {object} models.Device
// @Router /devices/{id} [put]
// @Security BearerAuth
func (h *DeviceHandlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var upd models.DeviceUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device, err := h.devices.Update(r.Context(), userID, mux.Vars(r)["id"], upd)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to update device").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Look up a device by MAC address
// @Tags devices
// @Produce json
// @Param mac query string true "Hardware id printed on the device"
// @Success 200 {object} service.LookupResult
// @Failure 404 {object} errors.APIError
// @Router /devices/lookup [get]
// @Security BearerAuth
func (h *DeviceHandlers) LookupDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	res, err := h.devices.LookupByMAC(r.Context(), userID, r.URL.Query().Get("mac"))
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to look up device").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// @Summary Claim a device
// @Description Assign an unclaimed device to the caller by its MAC address
// @Tags devices
// @Accept json
// @Produce json
// @Param claim body models.ClaimRequest true "Device MAC"
// @Success 200 {object} models.Device
// @Failure 409 {object} errors.APIError
// @Router /devices/claim [post]
// @Security BearerAuth
func (h *DeviceHandlers) ClaimDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var req models.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device, err := h.devices.Claim(r.Context(), userID, req.DeviceMAC)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to claim device").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Unclaim a device
// @Description Release one of the caller's devices so others can claim it
// @Tags devices
// @Param id path string true "Device ID"
// @Success 204
// @Router /devices/{id}/unclaim [post]
// @Security BearerAuth
func (h *DeviceHandlers) UnclaimDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	if err := h.devices.Unclaim(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		respondWithError(w, toAPIError(err, "failed to unclaim device").WithRequestID(requestID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
