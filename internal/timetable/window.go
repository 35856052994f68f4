// Package timetable turns flat timeslot rows into weekly grids.
//
// Classroom slots are placed into two fixed night windows. One-to-one slots
// get a free-form column per distinct time range.
package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a fixed classroom scheduling window.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Label renders the window as a column header.
func (w Window) Label() string {
	return RangeLabel(w.Start, w.End)
}

// NightWindows are the only classroom windows shown on the master grid.
var NightWindows = [2]Window{
	{Start: "20:15", End: "21:15"},
	{Start: "21:20", End: "22:20"},
}

// Weekdays in grid order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// NormalizeTime truncates a stored time such as "20:15:00+08" to "20:15".
func NormalizeTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 5 {
		return raw[:5]
	}
	return raw
}

// ClassifyWindow returns the night window index matching start and end
// exactly after normalization.
func ClassifyWindow(start, end string) (int, bool) {
	start, end = NormalizeTime(start), NormalizeTime(end)
	for i, w := range NightWindows {
		if w.Start == start && w.End == end {
			return i, true
		}
	}
	return -1, false
}

// RangeLabel is the column header used for one-to-one slots.
func RangeLabel(start, end string) string {
	return NormalizeTime(start) + "–" + NormalizeTime(end)
}

// ParseClock validates a time of day and returns it as zero padded HH:mm.
// Seconds are accepted and dropped.
func ParseClock(raw string) (string, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("invalid time %q", raw)
	}
	hour, ok := clockField(parts[0], 1, 23)
	if !ok {
		return "", fmt.Errorf("invalid hour in %q", raw)
	}
	minute, ok := clockField(parts[1], 2, 59)
	if !ok {
		return "", fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		if _, ok := clockField(parts[2], 2, 59); !ok {
			return "", fmt.Errorf("invalid second in %q", raw)
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// clockField parses an unsigned field of minWidth to two digits no larger than limit.
func clockField(field string, minWidth, limit int) (int, bool) {
	if len(field) < minWidth || len(field) > 2 {
		return 0, false
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(field)
	if err != nil || n > limit {
		return 0, false
	}
	return n, true
}

// CanonicalDay maps a case-insensitive weekday name to its canonical form.
func CanonicalDay(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, day := range Weekdays {
		if strings.EqualFold(day, raw) {
			return day, true
		}
	}
	return "", false
}
