package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// Repository persists attendance data.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const upsertMark = `
	INSERT INTO attendance (student_id, event_id, session, type, time_recorded, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (student_id, event_id, session, type) DO UPDATE
	SET time_recorded = EXCLUDED.time_recorded
`

// Upsert writes marks in one transaction. A mark that already exists for
// (student, event, session, type) only has its time_recorded refreshed.
// Marks must already be normalized.
func (r *Repository) Upsert(ctx context.Context, marks []Mark, at time.Time) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertMark)
		if err != nil {
			return errors.Wrap(err, "prepare attendance upsert")
		}
		defer stmt.Close()
		for _, m := range marks {
			if _, err := stmt.ExecContext(ctx, m.StudentID, m.EventID, m.Session, m.Type, at); err != nil {
				return errors.Wrapf(store.Classify(err), "upsert attendance student=%d event=%d", m.StudentID, m.EventID)
			}
		}
		return nil
	})
}

const listColumns = `
	SELECT a.id, a.student_id, a.event_id, a.session, a.type, a.time_recorded, a.recorded_at,
	       s.student_number, s.first_name, s.last_name, s.year_level, s.course_id, s.section_id, s.photo,
	       e.event_name, e.event_date, e.fine_amount
	FROM attendance a
	LEFT JOIN students s ON a.student_id = s.id
	LEFT JOIN events e ON a.event_id = e.id
`

// List returns attendance rows joined with student and event metadata,
// newest first. A zero eventID returns every event.
func (r *Repository) List(ctx context.Context, eventID int64) ([]Record, error) {
	query := listColumns
	args := []any{}
	if eventID > 0 {
		query += " WHERE a.event_id = $1"
		args = append(args, eventID)
	}
	query += " ORDER BY a.recorded_at DESC, a.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list attendance")
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.StudentID, &rec.EventID, &rec.Session, &rec.Type, &rec.TimeRecorded, &rec.RecordedAt,
			&rec.StudentNumber, &rec.FirstName, &rec.LastName, &rec.YearLevel, &rec.CourseID, &rec.SectionID, &rec.Photo,
			&rec.EventName, &rec.EventDate, &rec.FineAmount,
		); err != nil {
			return nil, errors.Wrap(err, "scan attendance")
		}
		rec.Status = status(rec.Type)
		res = append(res, rec)
	}
	return res, errors.Wrap(rows.Err(), "iterate attendance")
}
