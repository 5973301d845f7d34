// FilePath: internal/models/models.sensor_data.go
package models

import "time"

// SensorReading represents a single row of the sensor log. Every measurement
// is nullable: devices with a partial sensor set leave fields empty.
type SensorReading struct {
	ID         int64     `json:"id" db:"id"`
	DeviceID   string    `json:"device_id" db:"device_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	TempC      *float64  `json:"temp_c,omitempty" db:"temp_c"`
	Humidity   *float64  `json:"humidity,omitempty" db:"humidity"`
	PressurePa *float64  `json:"pressure_pa,omitempty" db:"pressure_pa"`
	WindSpeed  *float64  `json:"wind_speed,omitempty" db:"wind_speed"`
	RFID       *string   `json:"rfid,omitempty" db:"rfid"`
}

// Metric names a numeric measurement column
type Metric string

const (
	MetricTemperature Metric = "temp"
	MetricHumidity    Metric = "humidity"
	MetricPressure    Metric = "pressure"
	MetricWindSpeed   Metric = "windspeed"
)

// Metrics lists the numeric measurements in display order
var Metrics = []Metric{MetricTemperature, MetricHumidity, MetricPressure, MetricWindSpeed}

// Value extracts the metric from a reading; ok is false when the field is null.
func (m Metric) Value(r SensorReading) (float64, bool) {
	var v *float64
	switch m {
	case MetricTemperature:
		v = r.TempC
	case MetricHumidity:
		v = r.Humidity
	case MetricPressure:
		v = r.PressurePa
	case MetricWindSpeed:
		v = r.WindSpeed
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Label returns a human readable column title including the unit
func (m Metric) Label() string {
	switch m {
	case MetricTemperature:
		return "Temperature (°C)"
	case MetricHumidity:
		return "Humidity (%)"
	case MetricPressure:
		return "Pressure (Pa)"
	case MetricWindSpeed:
		return "Wind Speed (m/s)"
	}
	return string(m)
}

// ParseMetric maps a user supplied name onto a known metric
func ParseMetric(s string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}
