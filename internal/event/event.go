package event

import (
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/attendance"
)

// ErrInvalid marks an event that fails validation.
var ErrInvalid = errors.New("invalid event")

// Event is a school activity with a flat fine and optional check windows.
type Event struct {
	ID         int64     `json:"id"`
	Name       string    `json:"event_name"`
	Date       time.Time `json:"event_date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	FineAmount float64   `json:"fine_amount"`
	CourseID   *int64    `json:"course_id"`

	AMInStart  *string `json:"am_in_start_time"`
	AMInEnd    *string `json:"am_in_end_time"`
	AMOutStart *string `json:"am_out_start_time"`
	AMOutEnd   *string `json:"am_out_end_time"`
	PMInStart  *string `json:"pm_in_start_time"`
	PMInEnd    *string `json:"pm_in_end_time"`
	PMOutStart *string `json:"pm_out_start_time"`
	PMOutEnd   *string `json:"pm_out_end_time"`

	CreatedAt time.Time `json:"created_at"`
}

type pair struct {
	slot       Slot
	start, end *string
}

func (e Event) pairs() []pair {
	return []pair{
		{Slot{attendance.AM, attendance.In}, e.AMInStart, e.AMInEnd},
		{Slot{attendance.AM, attendance.Out}, e.AMOutStart, e.AMOutEnd},
		{Slot{attendance.PM, attendance.In}, e.PMInStart, e.PMInEnd},
		{Slot{attendance.PM, attendance.Out}, e.PMOutStart, e.PMOutEnd},
	}
}

// Windows parses the configured window pairs. A pair missing either bound
// is not configured.
func (e Event) Windows() (Windows, error) {
	var ws Windows
	for _, p := range e.pairs() {
		if blank(p.start) || blank(p.end) {
			continue
		}
		start, err := ParseClock(*p.start)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalid, "%s %s start: %v", p.slot.Session, p.slot.Type, err)
		}
		end, err := ParseClock(*p.end)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalid, "%s %s end: %v", p.slot.Session, p.slot.Type, err)
		}
		ws = append(ws, Checkpoint{Slot: p.slot, Window: Window{Start: start, End: end}})
	}
	return ws, nil
}

// Validate checks required fields and that every window pair is either
// fully absent or a well-formed range with start before end.
func (e Event) Validate() error {
	if e.Name == "" || e.Date.IsZero() || e.StartTime == "" || e.EndTime == "" {
		return errors.Wrap(ErrInvalid, "event name, date, start time, end time, and fine amount are required")
	}
	if e.FineAmount < 0 {
		return errors.Wrap(ErrInvalid, "fine amount must not be negative")
	}
	for _, p := range e.pairs() {
		if blank(p.start) != blank(p.end) {
			return errors.Wrapf(ErrInvalid, "%s %s window needs both start and end", p.slot.Session, p.slot.Type)
		}
	}
	ws, err := e.Windows()
	if err != nil {
		return err
	}
	for _, cp := range ws {
		if cp.Start >= cp.End {
			return errors.Wrapf(ErrInvalid, "%s %s window must start before it ends", cp.Session, cp.Type)
		}
	}
	return nil
}

func blank(s *string) bool { return s == nil || *s == "" }
