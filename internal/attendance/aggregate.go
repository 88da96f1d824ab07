package attendance

import (
	"sort"
	"time"
)

// Slot holds the formatted check-in and check-out times of one session.
// An empty string means no mark was recorded.
type Slot struct {
	In  string `json:"in,omitempty"`
	Out string `json:"out,omitempty"`
}

// Attended reports whether either mark exists.
func (s Slot) Attended() bool { return s.In != "" || s.Out != "" }

// Sessions is the AM/PM breakdown of a student's marks for one event.
type Sessions struct {
	AM Slot `json:"AM"`
	PM Slot `json:"PM"`
}

func (s *Sessions) slot(session Session) *Slot {
	if session == PM {
		return &s.PM
	}
	return &s.AM
}

// Summary is the per-(student, event) view of attendance with the
// prorated fine.
type Summary struct {
	StudentID     int64      `json:"student_id"`
	StudentNumber string     `json:"student_number"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	YearLevel     *int64     `json:"year_level"`
	CourseID      *int64     `json:"course_id"`
	SectionID     *int64     `json:"section_id"`
	Photo         string     `json:"photo,omitempty"`
	EventID       int64      `json:"event_id"`
	EventName     string     `json:"event_name"`
	EventDate     *time.Time `json:"event_date"`
	FineAmount    float64    `json:"fine_amount"`

	Sessions         Sessions `json:"sessions"`
	SessionsAttended int      `json:"sessionsAttended"`
	Status           string   `json:"status"`
	Fine             float64  `json:"fine"`
	FineDisplay      string   `json:"fine_display"`
}

// missingTime stands in for a mark whose timestamp is unknown so that the
// slot still counts as attended.
const missingTime = "--:--"

type groupKey struct {
	student int64
	event   int64
}

// Aggregate folds raw attendance rows into one Summary per (student, event).
// Missing or unrecognized sessions and types fall back to AM and IN. Later
// rows overwrite earlier ones for the same slot. Times are rendered as
// 24-hour "15:04" in loc.
func Aggregate(records []Record, loc *time.Location) []Summary {
	if loc == nil {
		loc = time.UTC
	}
	groups := make(map[groupKey]*Summary)
	for _, rec := range records {
		key := groupKey{student: rec.StudentID, event: rec.EventID}
		sum, ok := groups[key]
		if !ok {
			sum = newSummary(rec)
			groups[key] = sum
		}

		session, _ := ParseSession(rec.Session)
		typ, _ := ParseType(rec.Type)
		clock := missingTime
		if !rec.TimeRecorded.IsZero() {
			clock = rec.TimeRecorded.In(loc).Format("15:04")
		}
		slot := sum.Sessions.slot(session)
		if typ == In {
			slot.In = clock
		} else {
			slot.Out = clock
		}
	}

	out := make([]Summary, 0, len(groups))
	for _, sum := range groups {
		sum.SessionsAttended = 0
		if sum.Sessions.AM.Attended() {
			sum.SessionsAttended++
		}
		if sum.Sessions.PM.Attended() {
			sum.SessionsAttended++
		}
		sum.Status = StatusLabel(sum.SessionsAttended)
		sum.Fine = Prorate(sum.FineAmount, sum.SessionsAttended)
		sum.FineDisplay = FormatAmount(sum.Fine)
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.StudentID < b.StudentID
	})
	return out
}

// StatusLabel names an attendance count: ABSENT, PARTIAL or PRESENT.
func StatusLabel(sessionsAttended int) string {
	switch {
	case sessionsAttended <= 0:
		return "ABSENT"
	case sessionsAttended == 1:
		return "PARTIAL"
	default:
		return "PRESENT"
	}
}

func newSummary(rec Record) *Summary {
	sum := &Summary{
		StudentID: rec.StudentID,
		EventID:   rec.EventID,
		YearLevel: rec.YearLevel,
		CourseID:  rec.CourseID,
		SectionID: rec.SectionID,
		EventDate: rec.EventDate,
	}
	sum.StudentNumber = deref(rec.StudentNumber)
	sum.FirstName = deref(rec.FirstName)
	sum.LastName = deref(rec.LastName)
	sum.Photo = deref(rec.Photo)
	sum.EventName = deref(rec.EventName)
	if rec.FineAmount != nil {
		sum.FineAmount = *rec.FineAmount
	}
	return sum
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
