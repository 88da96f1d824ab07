package attendance

import (
	"strings"
	"time"
)

// Session is the half-day an attendance mark belongs to.
type Session string

// Type tells whether a mark is a check-in or a check-out.
type Type string

const (
	AM Session = "AM"
	PM Session = "PM"

	In  Type = "IN"
	Out Type = "OUT"
)

// ParseSession normalizes s. Empty input yields AM; ok is false when s is
// set but not a known session, in which case AM is returned as well.
func ParseSession(s string) (Session, bool) {
	switch Session(strings.ToUpper(strings.TrimSpace(s))) {
	case "", AM:
		return AM, true
	case PM:
		return PM, true
	}
	return AM, false
}

// ParseType normalizes t. Empty input yields IN; ok is false when t is set
// but unknown, in which case IN is returned as well.
func ParseType(t string) (Type, bool) {
	switch Type(strings.ToUpper(strings.TrimSpace(t))) {
	case "", In:
		return In, true
	case Out:
		return Out, true
	}
	return In, false
}

// Mark is one attendance write as submitted by a client.
type Mark struct {
	StudentID int64  `json:"student_id"`
	EventID   int64  `json:"event_id"`
	Session   string `json:"session,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Record is a stored attendance row joined with student and event metadata.
type Record struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	EventID      int64     `json:"event_id"`
	Session      string    `json:"session"`
	Type         string    `json:"type"`
	TimeRecorded time.Time `json:"time_recorded"`
	RecordedAt   time.Time `json:"recorded_at"`

	StudentNumber *string    `json:"student_number"`
	FirstName     *string    `json:"first_name"`
	LastName      *string    `json:"last_name"`
	YearLevel     *int64     `json:"year_level"`
	CourseID      *int64     `json:"course_id"`
	SectionID     *int64     `json:"section_id"`
	Photo         *string    `json:"photo"`
	EventName     *string    `json:"event_name"`
	EventDate     *time.Time `json:"event_date"`
	FineAmount    *float64   `json:"fine_amount"`
	Status        string     `json:"status"`
}

// status labels a raw row the way the attendance listing shows it.
func status(t string) string {
	if typ, _ := ParseType(t); typ == In {
		return "PRESENT"
	}
	return "CHECKED_OUT"
}
