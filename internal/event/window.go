package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"schoolportal/internal/attendance"
)

// Clock is a time of day in seconds since midnight.
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS" in 24-hour form.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	limits := []int{23, 59, 59}
	var total int
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return Clock(total), nil
}

// ClockOf returns the time of day of t in loc.
func ClockOf(t time.Time, loc *time.Location) Clock {
	if loc != nil {
		t = t.In(loc)
	}
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/3600, int(c)%3600/60)
}

// Window is a half-open [Start, End) range of the day.
type Window struct {
	Start Clock
	End   Clock
}

// Contains reports whether c falls inside the window.
func (w Window) Contains(c Clock) bool { return c >= w.Start && c < w.End }

// Slot is the session and mark type a window stands for.
type Slot struct {
	Session attendance.Session
	Type    attendance.Type
}

// Checkpoint is one configured window with its slot.
type Checkpoint struct {
	Slot
	Window
}

// Windows holds the configured check-in and check-out windows of an event
// in evaluation order: AM in, AM out, PM in, PM out.
type Windows []Checkpoint

// Configured reports whether any window is set.
func (ws Windows) Configured() bool { return len(ws) > 0 }

// Resolve finds the slot whose window contains c. With no window
// configured every time is valid and the AM/IN slot is returned.
func (ws Windows) Resolve(c Clock) (Slot, bool) {
	if !ws.Configured() {
		return Slot{Session: attendance.AM, Type: attendance.In}, true
	}
	for _, cp := range ws {
		if cp.Contains(c) {
			return cp.Slot, true
		}
	}
	return Slot{}, false
}

// Describe renders the windows for status messages.
func (ws Windows) Describe() string {
	if !ws.Configured() {
		return "no time restrictions"
	}
	parts := make([]string, 0, len(ws))
	for _, cp := range ws {
		parts = append(parts, fmt.Sprintf("%s %s %s-%s", cp.Session, cp.Type, cp.Start, cp.End))
	}
	return strings.Join(parts, ", ")
}
