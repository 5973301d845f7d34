package models

import "time"

// ReadingFilters are the query parameters accepted by the readings endpoints
type ReadingFilters struct {
	DeviceIDs   []string `schema:"device_id"`
	WindowHours string   `schema:"window_hours"`
	Metric      string   `schema:"metric"`
}

// ReadingQuery is what the data-query collaborator is asked for. A zero Since
// means no lower bound.
type ReadingQuery struct {
	DeviceIDs []string
	Since     time.Time
	Ascending bool
}

// Bounded reports whether the query carries a cutoff
func (q ReadingQuery) Bounded() bool {
	return !q.Since.IsZero()
}
