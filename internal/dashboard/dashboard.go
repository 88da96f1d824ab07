package dashboard

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Overview holds the headline counts shown on the dashboard.
type Overview struct {
	Students      int     `json:"total_students"`
	Courses       int     `json:"total_courses"`
	Sections      int     `json:"total_sections"`
	Events        int     `json:"total_events"`
	Attendance    int     `json:"total_attendance"`
	UnpaidFines   int     `json:"unpaid_fines"`
	UnpaidAmount  float64 `json:"unpaid_amount"`
	CollectedFees float64 `json:"collected_amount"`
}

// Repository reads dashboard aggregates.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Overview counts active records and sums fines.
func (r *Repository) Overview(ctx context.Context) (Overview, error) {
	var o Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM sections WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM attendance),
			(SELECT COUNT(*) FROM fines WHERE status = 'unpaid'),
			(SELECT COALESCE(SUM(amount), 0) FROM fines WHERE status = 'unpaid'),
			(SELECT COALESCE(SUM(amount_paid), 0) FROM fine_receipts)
	`).Scan(&o.Students, &o.Courses, &o.Sections, &o.Events, &o.Attendance, &o.UnpaidFines, &o.UnpaidAmount, &o.CollectedFees)
	if err != nil {
		return Overview{}, errors.Wrap(err, "dashboard overview")
	}
	return o, nil
}
