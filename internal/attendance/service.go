package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/metrics"
)

// ErrInvalid marks a rejected attendance submission.
var ErrInvalid = errors.New("invalid attendance")

// Service validates and records attendance marks and builds summaries.
type Service struct {
	repo *Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a service backed by a repository. Summary times are
// rendered in loc.
func NewService(repo *Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Normalize applies the AM/IN defaults and rejects marks that cannot be
// written. Nothing is written when any mark is invalid.
func Normalize(marks []Mark) ([]Mark, error) {
	if len(marks) == 0 {
		return nil, errors.Wrap(ErrInvalid, "no records")
	}
	out := make([]Mark, len(marks))
	for i, m := range marks {
		if m.StudentID <= 0 {
			return nil, errors.Wrapf(ErrInvalid, "record %d: student_id is required", i)
		}
		if m.EventID <= 0 {
			return nil, errors.Wrapf(ErrInvalid, "record %d: event_id is required", i)
		}
		session, ok := ParseSession(m.Session)
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "record %d: unknown session %q", i, m.Session)
		}
		typ, ok := ParseType(m.Type)
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "record %d: unknown type %q", i, m.Type)
		}
		out[i] = Mark{StudentID: m.StudentID, EventID: m.EventID, Session: string(session), Type: string(typ)}
	}
	return out, nil
}

// Record upserts the marks, stamping them with the current time.
func (s *Service) Record(ctx context.Context, marks []Mark) (int, error) {
	normalized, err := Normalize(marks)
	if err != nil {
		return 0, err
	}
	if err := s.repo.Upsert(ctx, normalized, s.now().UTC()); err != nil {
		return 0, err
	}
	for _, m := range normalized {
		metrics.AttendanceWrites.WithLabelValues(m.Session, m.Type).Inc()
	}
	return len(normalized), nil
}

// List returns raw rows, optionally limited to one event.
func (s *Service) List(ctx context.Context, eventID int64) ([]Record, error) {
	return s.repo.List(ctx, eventID)
}

// Summaries aggregates the rows of one event (or all events when eventID
// is zero) into per-student session presence and prorated fines.
func (s *Service) Summaries(ctx context.Context, eventID int64) ([]Summary, error) {
	records, err := s.repo.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return Aggregate(records, s.loc), nil
}
