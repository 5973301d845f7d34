package models

import (
	"sort"
	"time"
)

// ScopeKind discriminates how a request names its devices
type ScopeKind string

const (
	ScopeAllOwned  ScopeKind = "all_owned"
	ScopeDevice    ScopeKind = "device"
	ScopeDeviceSet ScopeKind = "device_set"
)

// Scope is the unresolved device selection of a request
type Scope struct {
	Kind      ScopeKind `json:"kind"`
	DeviceIDs []string  `json:"device_ids,omitempty"`
}

// AllOwnedDevices selects every device the caller owns
func AllOwnedDevices() Scope {
	return Scope{Kind: ScopeAllOwned}
}

// SingleDevice selects one device, subject to an ownership check
func SingleDevice(id string) Scope {
	return Scope{Kind: ScopeDevice, DeviceIDs: []string{id}}
}

// DeviceSet selects an explicit set of devices; every member must be owned
func DeviceSet(ids ...string) Scope {
	return Scope{Kind: ScopeDeviceSet, DeviceIDs: append([]string(nil), ids...)}
}

// ScopeFromIDs picks the scope kind matching the number of ids given
func ScopeFromIDs(ids []string) Scope {
	switch len(ids) {
	case 0:
		return AllOwnedDevices()
	case 1:
		return SingleDevice(ids[0])
	default:
		return DeviceSet(ids...)
	}
}

// NormalizeIDs drops empty and duplicate ids and sorts the rest
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Series is the result of a windowed fetch. An empty Readings slice is the
// "no data" outcome and is not an error.
type Series struct {
	DeviceIDs []string        `json:"device_ids"`
	Window    Window          `json:"window"`
	Cutoff    *time.Time      `json:"cutoff,omitempty"`
	Fallback  bool            `json:"fallback"`
	Readings  []SensorReading `json:"readings"`
}

// NoData reports whether the fetch produced no rows
func (s Series) NoData() bool {
	return len(s.Readings) == 0
}

// Averages summarises a window; every field is independently nullable
type Averages struct {
	DeviceIDs  []string   `json:"device_ids"`
	Window     Window     `json:"window"`
	TempC      *float64   `json:"temp"`
	Humidity   *float64   `json:"humidity"`
	PressurePa *float64   `json:"pressure"`
	WindSpeed  *float64   `json:"windspeed"`
	RFID       *string    `json:"rfid"`
	Samples    int        `json:"samples"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Fallback   bool       `json:"fallback"`
}

// NoData reports whether no rows contributed to the averages
func (a Averages) NoData() bool {
	return a.Samples == 0
}

// Field returns the mean of a metric
func (a Averages) Field(m Metric) *float64 {
	switch m {
	case MetricTemperature:
		return a.TempC
	case MetricHumidity:
		return a.Humidity
	case MetricPressure:
		return a.PressurePa
	case MetricWindSpeed:
		return a.WindSpeed
	}
	return nil
}

// MultiSeries holds one series per device of a fan-out, kept separate
type MultiSeries struct {
	DeviceIDs []string          `json:"device_ids"`
	Window    Window            `json:"window"`
	Series    map[string]Series `json:"series"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// Ordered returns the per-device series in request order
func (m MultiSeries) Ordered() []Series {
	out := make([]Series, 0, len(m.DeviceIDs))
	for _, id := range m.DeviceIDs {
		out = append(out, m.Series[id])
	}
	return out
}
