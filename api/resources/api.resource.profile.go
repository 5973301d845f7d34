package resources

import (
	"encoding/json"
	"net/http"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/service"
	nuts "github.com/vaudience/go-nuts"
)

// ProfileHandlers serves the caller's own profile
type ProfileHandlers struct {
	profiles *service.ProfileService
}

// @Summary Get profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Router /profile [get]
// @Security BearerAuth
func (h *ProfileHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to load profile").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// @Summary Update profile
// @Tags profile
// @Accept json
// @Produce json
// @Param profile body models.Profile true "New full name"
// @Success 200 {object} models.Profile
// @Failure 400 {object} errors.APIError
// @Router /profile [put]
// @Security BearerAuth
func (h *ProfileHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var body models.Profile
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	profile, err := h.profiles.UpdateName(r.Context(), userID, body.FullName)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to update profile").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}
