package event

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// Repository persists events.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, event_name, event_date, start_time, end_time, fine_amount, course_id,
	am_in_start_time, am_in_end_time, am_out_start_time, am_out_end_time,
	pm_in_start_time, pm_in_end_time, pm_out_start_time, pm_out_end_time, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.Date, &e.StartTime, &e.EndTime, &e.FineAmount, &e.CourseID,
		&e.AMInStart, &e.AMInEnd, &e.AMOutStart, &e.AMOutEnd,
		&e.PMInStart, &e.PMInEnd, &e.PMOutStart, &e.PMOutEnd, &e.CreatedAt)
	return e, err
}

// List returns every event, latest date first.
func (r *Repository) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY event_date DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		res = append(res, e)
	}
	return res, errors.Wrap(rows.Err(), "iterate events")
}

// Get returns one event or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return Event{}, errors.Wrapf(store.Classify(err), "get event %d", id)
	}
	return e, nil
}

// Create inserts e and returns its id.
func (r *Repository) Create(ctx context.Context, e Event) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO events (
			event_name, event_date, start_time, end_time, fine_amount, course_id,
			am_in_start_time, am_in_end_time, am_out_start_time, am_out_end_time,
			pm_in_start_time, pm_in_end_time, pm_out_start_time, pm_out_end_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, e.Name, e.Date, e.StartTime, e.EndTime, e.FineAmount, e.CourseID,
		nullable(e.AMInStart), nullable(e.AMInEnd), nullable(e.AMOutStart), nullable(e.AMOutEnd),
		nullable(e.PMInStart), nullable(e.PMInEnd), nullable(e.PMOutStart), nullable(e.PMOutEnd),
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(store.Classify(err), "create event")
	}
	return id, nil
}

// Update replaces every editable field of event e.ID.
func (r *Repository) Update(ctx context.Context, e Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET
			event_name = $1, event_date = $2, start_time = $3, end_time = $4, fine_amount = $5, course_id = $6,
			am_in_start_time = $7, am_in_end_time = $8, am_out_start_time = $9, am_out_end_time = $10,
			pm_in_start_time = $11, pm_in_end_time = $12, pm_out_start_time = $13, pm_out_end_time = $14
		WHERE id = $15
	`, e.Name, e.Date, e.StartTime, e.EndTime, e.FineAmount, e.CourseID,
		nullable(e.AMInStart), nullable(e.AMInEnd), nullable(e.AMOutStart), nullable(e.AMOutEnd),
		nullable(e.PMInStart), nullable(e.PMInEnd), nullable(e.PMOutStart), nullable(e.PMOutEnd),
		e.ID,
	)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "update event %d", e.ID)
	}
	return affected(res, e.ID)
}

// Delete removes an event together with its attendance rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE event_id = $1`, id); err != nil {
			return errors.Wrapf(err, "delete attendance of event %d", id)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return errors.Wrapf(store.Classify(err), "delete event %d", id)
		}
		return affected(res, id)
	})
}

func affected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, "event %d", id)
	}
	return nil
}

func nullable(s *string) any {
	if blank(s) {
		return nil
	}
	return *s
}
