package fine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// Fine statuses.
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

// ErrInvalid marks a fine or receipt that fails validation.
var ErrInvalid = errors.New("invalid fine")

// Fine is an amount owed by a student.
type Fine struct {
	ID        int64      `json:"id"`
	StudentID int64      `json:"student_id"`
	Amount    float64    `json:"amount"`
	Reason    string     `json:"reason"`
	Date      time.Time  `json:"date"`
	Status    string     `json:"status"`
	PaidDate  *time.Time `json:"paid_date"`
	CreatedAt time.Time  `json:"created_at"`

	StudentNumber *string `json:"student_number,omitempty"`
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
}

// Validate checks the fields required to save a fine and fills the default status.
func (f *Fine) Validate() error {
	if f.StudentID <= 0 || strings.TrimSpace(f.Reason) == "" || f.Date.IsZero() {
		return errors.Wrap(ErrInvalid, "student, amount, reason and date are required")
	}
	if f.Amount <= 0 {
		return errors.Wrap(ErrInvalid, "amount must be positive")
	}
	switch f.Status {
	case "":
		f.Status = StatusUnpaid
	case StatusPaid, StatusUnpaid:
	default:
		return errors.Wrapf(ErrInvalid, "unknown status %q", f.Status)
	}
	return nil
}

// Fines persists fines and their receipts.
type Fines struct {
	db *sql.DB
}

// NewFines creates a repo.
func NewFines(db *sql.DB) *Fines {
	return &Fines{db: db}
}

// List returns fines newest first. An empty status returns all.
func (r *Fines) List(ctx context.Context, status string) ([]Fine, error) {
	query := `
		SELECT f.id, f.student_id, f.amount, f.reason, f.date, f.status, f.paid_date, f.created_at,
		       s.student_number, s.first_name, s.last_name
		FROM fines f
		LEFT JOIN students s ON f.student_id = s.id`
	var args []any
	if status != "" {
		query += " WHERE f.status = $1"
		args = append(args, status)
	}
	query += " ORDER BY f.date DESC, f.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list fines")
	}
	defer rows.Close()
	var res []Fine
	for rows.Next() {
		var f Fine
		if err := rows.Scan(&f.ID, &f.StudentID, &f.Amount, &f.Reason, &f.Date, &f.Status, &f.PaidDate, &f.CreatedAt,
			&f.StudentNumber, &f.FirstName, &f.LastName); err != nil {
			return nil, errors.Wrap(err, "scan fine")
		}
		res = append(res, f)
	}
	return res, errors.Wrap(rows.Err(), "iterate fines")
}

// Create inserts f and returns its id.
func (r *Fines) Create(ctx context.Context, f Fine, now time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO fines (student_id, amount, reason, date, status, paid_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, f.StudentID, f.Amount, f.Reason, f.Date, f.Status, paidDate(f, now), now).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(store.Classify(err), "create fine")
	}
	return id, nil
}

// Update replaces the editable fields of f.ID. Moving to paid stamps the
// paid date, moving back to unpaid clears it.
func (r *Fines) Update(ctx context.Context, f Fine, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fines SET amount = $1, reason = $2, date = $3, status = $4, paid_date = $5
		WHERE id = $6
	`, f.Amount, f.Reason, f.Date, f.Status, paidDate(f, now), f.ID)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "update fine %d", f.ID)
	}
	return affected(res, "fine", f.ID)
}

// Delete removes a fine together with its receipts.
func (r *Fines) Delete(ctx context.Context, id int64) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fine_receipts WHERE fine_id = $1`, id); err != nil {
			return errors.Wrapf(err, "delete receipts of fine %d", id)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM fines WHERE id = $1`, id)
		if err != nil {
			return errors.Wrapf(err, "delete fine %d", id)
		}
		return affected(res, "fine", id)
	})
}

func paidDate(f Fine, now time.Time) *time.Time {
	if f.Status != StatusPaid {
		return nil
	}
	if f.PaidDate != nil {
		return f.PaidDate
	}
	return &now
}

func affected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, "%s %d", what, id)
	}
	return nil
}
