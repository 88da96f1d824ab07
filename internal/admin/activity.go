package admin

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Activity types recorded in login_logs.
const (
	ActivityLogin  = "login"
	ActivityLogout = "logout"
)

// StatsWindow is how far back login stats look.
const StatsWindow = 30 * 24 * time.Hour

// LoginStat counts logins per role.
type LoginStat struct {
	Role   string `json:"role"`
	Logins int    `json:"logins"`
}

// RecordActivity appends a login or logout entry.
func (r *Repository) RecordActivity(ctx context.Context, adminID int64, activity string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_logs (admin_id, activity_type, created_at) VALUES ($1, $2, $3)`,
		adminID, activity, at)
	return errors.Wrapf(err, "record %s for admin %d", activity, adminID)
}

// LoginStats counts logins per role since now minus StatsWindow. A
// non-empty role restricts the result to that role.
func (r *Repository) LoginStats(ctx context.Context, role string, now time.Time) ([]LoginStat, error) {
	query := `
		SELECT a.role, COUNT(*)
		FROM login_logs l
		JOIN admins a ON l.admin_id = a.id
		WHERE l.activity_type = $1 AND l.created_at >= $2`
	args := []any{ActivityLogin, now.Add(-StatsWindow)}
	if role != "" {
		query += " AND a.role = $3"
		args = append(args, role)
	}
	query += " GROUP BY a.role ORDER BY a.role"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "login stats")
	}
	defer rows.Close()
	var res []LoginStat
	for rows.Next() {
		var s LoginStat
		if err := rows.Scan(&s.Role, &s.Logins); err != nil {
			return nil, errors.Wrap(err, "scan login stat")
		}
		res = append(res, s)
	}
	return res, errors.Wrap(rows.Err(), "iterate login stats")
}
