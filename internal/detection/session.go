package detection

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"schoolportal/internal/attendance"
	"schoolportal/internal/event"
	"schoolportal/internal/face"
	"schoolportal/internal/metrics"
	"schoolportal/internal/school"
)

// Portal is the slice of the portal API the check-in loop needs.
type Portal interface {
	Event(ctx context.Context, id int64) (event.Event, error)
	Students(ctx context.Context, courseID int64) ([]school.Student, error)
	Attendance(ctx context.Context, eventID int64) ([]attendance.Record, error)
	RecordAttendance(ctx context.Context, mark attendance.Mark) error
}

// Stats summarizes a finished session.
type Stats struct {
	Frames    int
	Submitted int
	Confirmed int
	Failed    int
}

type writeResult struct {
	sub Submission
	err error
}

type frameOrErr struct {
	frame Frame
	err   error
}

// Session runs the check-in loop for one event from one frame source.
type Session struct {
	ID      string
	EventID int64

	portal Portal
	source FrameSource
	cfg    Config

	// OnFrame and OnNotice observe the loop. Both run on the loop goroutine.
	OnFrame  func(Frame, FrameResult)
	OnNotice func(Notice)
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	tracker *Tracker
	stats   Stats
}

// NewSession prepares a session. Nothing is read until Run.
func NewSession(eventID int64, portal Portal, source FrameSource, cfg Config) *Session {
	return &Session{
		ID:      uuid.NewString(),
		EventID: eventID,
		portal:  portal,
		source:  source,
		cfg:     cfg,
		now:     time.Now,
		OnNotice: func(n Notice) {
			log.Printf("checkin: %s: %s", n.Kind, n.Message)
		},
	}
}

// Prepare loads the event, its roster and the students already recorded,
// and builds the tracker.
func (s *Session) Prepare(ctx context.Context) (*Tracker, error) {
	ev, err := s.portal.Event(ctx, s.EventID)
	if err != nil {
		return nil, errors.Wrapf(err, "load event %d", s.EventID)
	}
	windows, err := ev.Windows()
	if err != nil {
		return nil, errors.Wrapf(err, "event %d windows", s.EventID)
	}
	var courseID int64
	if ev.CourseID != nil {
		courseID = *ev.CourseID
	}
	roster, err := s.portal.Students(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "load students")
	}
	students := make([]Student, 0, len(roster))
	for _, st := range roster {
		known := Student{ID: st.ID, Name: st.FirstName + " " + st.LastName}
		if st.FaceEncoding != nil && *st.FaceEncoding != "" {
			d, err := face.ParseDescriptor(*st.FaceEncoding)
			if err != nil {
				log.Printf("checkin: skip face of student %d: %v", st.ID, err)
			} else {
				known.Descriptor = d
			}
		}
		students = append(students, known)
	}
	recorded, err := s.portal.Attendance(ctx, s.EventID)
	if err != nil {
		return nil, errors.Wrap(err, "load recorded attendance")
	}

	t := NewTracker(s.cfg, students, windows)
	for _, rec := range recorded {
		t.Seed(rec.StudentID)
	}
	log.Printf("checkin %s: event %q, %d students (%d with faces), %d already attended, windows: %s",
		s.ID, ev.Name, len(students), t.Known(), t.AttendedCount(), windows.Describe())
	return t, nil
}

// Run prepares the session and evaluates frames until the source ends, the
// context is cancelled or Stop is called. Per-frame errors are logged and
// skipped.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		cancel()
		return Stats{}, errors.New("session already started")
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()
	defer close(s.done)
	defer cancel()
	defer s.source.Close()

	t, err := s.Prepare(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.mu.Lock()
	s.tracker = t
	s.mu.Unlock()
	defer s.clear()

	frames := make(chan frameOrErr)
	go s.read(ctx, frames)
	results := make(chan writeResult)
	inflight := 0
	eof := false

	for {
		if eof && inflight == 0 {
			return s.stats, nil
		}
		select {
		case <-ctx.Done():
			return s.stats, nil
		case r := <-results:
			inflight--
			s.resolve(t, r)
		case fe, ok := <-frames:
			if !ok {
				eof = true
				frames = nil
				continue
			}
			if fe.err != nil {
				metrics.FrameErrors.Inc()
				log.Printf("checkin %s: frame error: %v", s.ID, fe.err)
				continue
			}
			inflight += s.evaluate(ctx, t, fe.frame, results)
		}
	}
}

func (s *Session) read(ctx context.Context, out chan<- frameOrErr) {
	defer close(out)
	for {
		f, err := s.source.Next(ctx)
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, ErrBadFrame) {
			log.Printf("checkin %s: frame source failed: %v", s.ID, err)
			return
		}
		select {
		case out <- frameOrErr{frame: f, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) evaluate(ctx context.Context, t *Tracker, f Frame, results chan<- writeResult) int {
	if f.At.IsZero() {
		f.At = s.now()
	}
	s.stats.Frames++
	res := t.Observe(f.At, f.Faces)
	if s.OnFrame != nil {
		s.OnFrame(f, res)
	}
	for _, n := range res.Notices {
		s.notify(n)
	}
	for _, sub := range res.Submissions {
		s.stats.Submitted++
		go s.write(ctx, sub, results)
	}
	return len(res.Submissions)
}

// write runs off the loop goroutine. Its result is dropped once the
// session has stopped.
func (s *Session) write(ctx context.Context, sub Submission, results chan<- writeResult) {
	err := s.portal.RecordAttendance(ctx, attendance.Mark{
		StudentID: sub.StudentID,
		EventID:   s.EventID,
		Session:   string(sub.Slot.Session),
		Type:      string(sub.Slot.Type),
	})
	select {
	case results <- writeResult{sub: sub, err: err}:
	case <-ctx.Done():
	}
}

func (s *Session) resolve(t *Tracker, r writeResult) {
	if r.err != nil {
		s.stats.Failed++
	} else {
		s.stats.Confirmed++
	}
	s.notify(t.Resolve(s.now(), r.sub, r.err))
}

func (s *Session) notify(n Notice) {
	if s.OnNotice != nil {
		s.OnNotice(n)
	}
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker != nil {
		s.tracker.Reset()
		s.tracker = nil
	}
}

// Stop cancels the loop and waits for Run to return. Calling Stop on a
// session that never ran is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
