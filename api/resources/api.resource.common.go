package resources

import (
	"encoding/json"
	"net/http"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeReadingFilters reads device_id (repeatable) and window_hours
func decodeReadingFilters(r *http.Request) (models.ReadingFilters, models.Window, *errors.APIError) {
	var filters models.ReadingFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		return filters, models.Window{}, errors.NewValidationError("invalid query parameters", err)
	}
	filters.DeviceIDs = compact(filters.DeviceIDs)
	window, err := models.ParseWindow(filters.WindowHours)
	if err != nil {
		return filters, models.Window{}, errors.NewValidationError(err.Error(), err)
	}
	return filters, window, nil
}

func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// currentUser returns the authenticated caller's id
func currentUser(r *http.Request) (string, *errors.APIError) {
	user, ok := models.UserFromContext(r.Context())
	if !ok || user.ID == "" {
		return "", errors.NewAuthError("no user context found", nil)
	}
	return user.ID, nil
}

// toAPIError keeps typed errors and wraps anything else as internal
func toAPIError(err error, fallback string) *errors.APIError {
	if apiErr, ok := errors.As(err); ok {
		return apiErr
	}
	return errors.NewInternalError(fallback, err)
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	if err.Code >= http.StatusInternalServerError {
		nuts.L.Errorf("[API] %s", err.Error())
	} else {
		nuts.L.Warnf("[API] %s", err.Error())
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
