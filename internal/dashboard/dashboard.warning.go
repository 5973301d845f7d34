package dashboard

import (
	"fmt"

	"github.com/airflowiq/hub/internal/models"
)

const (
	// LowAirflowThreshold is the average wind speed (m/s) under which the filter is suspect
	LowAirflowThreshold = 2.0
	// MinWarningWindowHours is the shortest window considered long enough to judge airflow
	MinWarningWindowHours = 5
)

// FilterWarning returns a warning text when the averaged airflow over a long
// enough window suggests a clogged filter, or "" otherwise.
func FilterWarning(avg models.Averages, window models.Window) string {
	if avg.WindSpeed == nil {
		return ""
	}
	ws := *avg.WindSpeed
	longEnough := !window.Bounded() || window.Hours >= MinWarningWindowHours
	if ws < LowAirflowThreshold && longEnough {
		return fmt.Sprintf("Low airflow: %.2f m/s (normal is around %.0f m/s). Filter may be dirty or clogged", ws, LowAirflowThreshold)
	}
	return ""
}
