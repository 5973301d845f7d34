package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWindowHours is the window used when a request does not name one
const DefaultWindowHours = 24

// MaxWindowHours caps bounded windows at ten years; longer ranges are "all"
const MaxWindowHours = 24 * 365 * 10

// Window is a relative time range ending now. Zero hours means unbounded ("all time").
type Window struct {
	Hours int `json:"hours"`
}

// AllTime is the unbounded window
var AllTime = Window{}

// WindowPresets mirrors the ranges offered by the dashboard selector
var WindowPresets = []Window{
	{Hours: 1},
	{Hours: 6},
	{Hours: 24},
	{Hours: 24 * 7},
	{Hours: 24 * 30},
	AllTime,
}

// LastHours builds a bounded window
func LastHours(hours int) Window {
	return Window{Hours: hours}
}

// Bounded reports whether the window has a cutoff
func (w Window) Bounded() bool {
	return w.Hours > 0
}

// Duration of a bounded window; zero for AllTime. Hours beyond
// MaxWindowHours are clamped so the cutoff never lands in the future.
func (w Window) Duration() time.Duration {
	if !w.Bounded() {
		return 0
	}
	hours := w.Hours
	if hours > MaxWindowHours {
		hours = MaxWindowHours
	}
	return time.Duration(hours) * time.Hour
}

// CutoffFrom anchors the window at the given instant
func (w Window) CutoffFrom(anchor time.Time) time.Time {
	return anchor.Add(-w.Duration())
}

func (w Window) String() string {
	if !w.Bounded() {
		return "all"
	}
	return fmt.Sprintf("%dh", w.Hours)
}

// ParseWindow accepts "", "all", "0" or a positive number of hours up to
// MaxWindowHours
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return LastHours(DefaultWindowHours), nil
	case "all", "0":
		return AllTime, nil
	}
	hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
	if err != nil || hours < 0 {
		return Window{}, fmt.Errorf("invalid window %q", s)
	}
	if hours > MaxWindowHours {
		return Window{}, fmt.Errorf("window %q exceeds %d hours, use \"all\" instead", s, MaxWindowHours)
	}
	return LastHours(hours), nil
}
