// Package detection turns per-frame face detections into attendance writes.
// A Tracker holds the state of one camera session and is not safe for
// concurrent use; Session owns it from a single goroutine.
package detection

import (
	"fmt"
	"strconv"
	"time"

	"schoolportal/internal/event"
	"schoolportal/internal/face"
	"schoolportal/internal/metrics"
)

// Config tunes the tracker.
type Config struct {
	Threshold float64
	// Dwell is how long a student must be matched continuously before a write.
	Dwell time.Duration
	// Debounce is the minimum time between checks for one student or one
	// unregistered label.
	Debounce time.Duration
	// MaxGap is the longest a student may go unseen without restarting the
	// dwell timer. Zero disables the check.
	MaxGap time.Duration
	// Location is the timezone windows are evaluated in.
	Location *time.Location
}

// DefaultConfig returns the check-in loop defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: face.DefaultThreshold,
		Dwell:     3 * time.Second,
		Debounce:  2 * time.Second,
		MaxGap:    time.Second,
		Location:  time.UTC,
	}
}

// Student is a known face.
type Student struct {
	ID         int64
	Name       string
	Descriptor face.Descriptor
}

// Box is a face bounding box in frame pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Face is one detection in a frame.
type Face struct {
	Box        Box             `json:"box"`
	Descriptor face.Descriptor `json:"descriptor"`
}

// State describes how a face box should be rendered.
type State string

const (
	StateAttended      State = "attended"
	StateTracking      State = "tracking"
	StateSubmitted     State = "submitted"
	StateOutsideWindow State = "outside_window"
	StateUnregistered  State = "unregistered"
)

// Annotation is the per-face outcome of one frame.
type Annotation struct {
	Box       Box     `json:"box"`
	State     State   `json:"state"`
	StudentID int64   `json:"student_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Distance  float64 `json:"distance"`
	// Progress is how long the student has been tracked so far.
	Progress time.Duration `json:"progress_ns,omitempty"`
}

// NoticeKind classifies transient messages for the operator.
type NoticeKind string

const (
	NoticeConfirmed     NoticeKind = "confirmed"
	NoticeWriteFailed   NoticeKind = "write_failed"
	NoticeOutsideWindow NoticeKind = "outside_window"
	NoticeUnregistered  NoticeKind = "unregistered"
)

// Notice is a transient message for the operator.
type Notice struct {
	Kind      NoticeKind
	StudentID int64
	Message   string
	At        time.Time
}

// Submission asks the caller to write one attendance mark.
type Submission struct {
	StudentID int64
	Slot      event.Slot
}

// FrameResult is everything one call to Observe produced.
type FrameResult struct {
	Annotations []Annotation
	Notices     []Notice
	Submissions []Submission
}

type timer struct {
	start    time.Time
	lastSeen time.Time
}

// Tracker deduplicates matches across frames.
type Tracker struct {
	cfg     Config
	matcher *face.Matcher
	windows event.Windows
	names   map[int64]string

	attended  map[int64]struct{}
	pending   map[int64]struct{}
	timers    map[int64]*timer
	lastCheck map[int64]time.Time
	// all unregistered faces share one debounce
	lastUnknown time.Time
}

// NewTracker builds a tracker for one event. Students without a descriptor
// are never matched.
func NewTracker(cfg Config, students []Student, windows event.Windows) *Tracker {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	known := make([]face.Labeled, 0, len(students))
	names := make(map[int64]string, len(students))
	for _, s := range students {
		names[s.ID] = s.Name
		if len(s.Descriptor) > 0 {
			known = append(known, face.Labeled{StudentID: s.ID, Descriptor: s.Descriptor})
		}
	}
	t := &Tracker{
		cfg:     cfg,
		matcher: face.NewMatcher(known, cfg.Threshold),
		windows: windows,
		names:   names,
	}
	t.Reset()
	return t
}

// Known returns how many students can be matched.
func (t *Tracker) Known() int { return t.matcher.Len() }

// Seed marks students as already attended, typically from rows recorded
// before the session started.
func (t *Tracker) Seed(studentIDs ...int64) {
	for _, id := range studentIDs {
		t.attended[id] = struct{}{}
	}
}

// Reset clears every per-session set.
func (t *Tracker) Reset() {
	t.attended = map[int64]struct{}{}
	t.pending = map[int64]struct{}{}
	t.timers = map[int64]*timer{}
	t.lastCheck = map[int64]time.Time{}
	t.lastUnknown = time.Time{}
}

// Attended reports whether a write for the student has been confirmed.
func (t *Tracker) Attended(studentID int64) bool {
	_, ok := t.attended[studentID]
	return ok
}

// Pending reports whether a write for the student is in flight.
func (t *Tracker) Pending(studentID int64) bool {
	_, ok := t.pending[studentID]
	return ok
}

// AttendedCount returns the number of confirmed students.
func (t *Tracker) AttendedCount() int { return len(t.attended) }

// Observe evaluates one frame captured at now. Every Submission in the
// result has been marked pending and must be answered with Resolve.
func (t *Tracker) Observe(now time.Time, faces []Face) FrameResult {
	var res FrameResult
	for _, f := range faces {
		match, ok := t.matcher.Match(f.Descriptor)
		if !ok {
			t.unregistered(now, f, match, &res)
			continue
		}
		res.Annotations = append(res.Annotations, t.student(now, f, match, &res))
	}
	return res
}

func (t *Tracker) student(now time.Time, f Face, m face.Match, res *FrameResult) Annotation {
	id := m.StudentID
	ann := Annotation{Box: f.Box, StudentID: id, Name: t.names[id], Distance: m.Distance}

	if t.Attended(id) || t.Pending(id) {
		delete(t.timers, id)
		ann.State = StateAttended
		metrics.Detections.WithLabelValues(string(StateAttended)).Inc()
		return ann
	}

	tm, running := t.timers[id]
	if running && t.cfg.MaxGap > 0 && now.Sub(tm.lastSeen) > t.cfg.MaxGap {
		running = false
	}
	if !running {
		t.timers[id] = &timer{start: now, lastSeen: now}
		ann.State = StateTracking
		metrics.Detections.WithLabelValues(string(StateTracking)).Inc()
		return ann
	}
	tm.lastSeen = now
	ann.Progress = now.Sub(tm.start)
	ann.State = StateTracking

	last, checked := t.lastCheck[id]
	if ann.Progress < t.cfg.Dwell || (checked && now.Sub(last) < t.cfg.Debounce) {
		metrics.Detections.WithLabelValues(string(StateTracking)).Inc()
		return ann
	}
	t.lastCheck[id] = now

	slot, ok := t.windows.Resolve(event.ClockOf(now, t.cfg.Location))
	if !ok {
		delete(t.timers, id)
		ann.State = StateOutsideWindow
		res.Notices = append(res.Notices, Notice{
			Kind:      NoticeOutsideWindow,
			StudentID: id,
			At:        now,
			Message: fmt.Sprintf("%s detected outside valid session times (%s at %s)",
				t.label(id), t.windows.Describe(), event.ClockOf(now, t.cfg.Location)),
		})
		metrics.Detections.WithLabelValues(string(StateOutsideWindow)).Inc()
		return ann
	}

	t.pending[id] = struct{}{}
	delete(t.timers, id)
	ann.State = StateSubmitted
	res.Submissions = append(res.Submissions, Submission{StudentID: id, Slot: slot})
	metrics.Detections.WithLabelValues(string(StateSubmitted)).Inc()
	return ann
}

func (t *Tracker) unregistered(now time.Time, f Face, m face.Match, res *FrameResult) {
	res.Annotations = append(res.Annotations, Annotation{Box: f.Box, State: StateUnregistered, Distance: m.Distance})
	metrics.Detections.WithLabelValues(string(StateUnregistered)).Inc()

	if !t.lastUnknown.IsZero() && now.Sub(t.lastUnknown) < t.cfg.Debounce {
		return
	}
	t.lastUnknown = now
	res.Notices = append(res.Notices, Notice{Kind: NoticeUnregistered, At: now, Message: "Unknown person: not registered"})
}

// Resolve applies the outcome of a submitted write. Success moves the
// student from pending to attended; failure drops the pending mark so the
// student can be retried after a fresh dwell.
func (t *Tracker) Resolve(now time.Time, s Submission, err error) Notice {
	delete(t.pending, s.StudentID)
	if err != nil {
		metrics.Detections.WithLabelValues(string(NoticeWriteFailed)).Inc()
		return Notice{
			Kind:      NoticeWriteFailed,
			StudentID: s.StudentID,
			At:        now,
			Message:   fmt.Sprintf("failed to record attendance for %s: %v", t.label(s.StudentID), err),
		}
	}
	t.attended[s.StudentID] = struct{}{}
	metrics.Detections.WithLabelValues(string(NoticeConfirmed)).Inc()
	return Notice{
		Kind:      NoticeConfirmed,
		StudentID: s.StudentID,
		At:        now,
		Message:   fmt.Sprintf("%s: %s %s recorded at %s", t.label(s.StudentID), s.Slot.Session, s.Slot.Type, now.In(t.cfg.Location).Format("03:04:05 PM")),
	}
}

func (t *Tracker) label(id int64) string {
	if n := t.names[id]; n != "" {
		return n
	}
	return "student " + strconv.FormatInt(id, 10)
}
