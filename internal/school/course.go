package school

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// Course is a degree program.
type Course struct {
	ID        int64     `json:"id"`
	Name      string    `json:"course_name"`
	Code      string    `json:"course_code"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields required to save a course.
func (c Course) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(ErrInvalid, "course name is required")
	}
	return nil
}

// Courses persists courses.
type Courses struct {
	db *sql.DB
}

// NewCourses creates a repo.
func NewCourses(db *sql.DB) *Courses {
	return &Courses{db: db}
}

// List returns every course by name.
func (r *Courses) List(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, course_name, course_code, created_at FROM courses ORDER BY course_name, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list courses")
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan course")
		}
		res = append(res, c)
	}
	return res, errors.Wrap(rows.Err(), "iterate courses")
}

// Create inserts c and returns its id.
func (r *Courses) Create(ctx context.Context, c Course, now time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO courses (course_name, course_code, created_at) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Code, now,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(store.Classify(err), "create course")
	}
	return id, nil
}

// Update renames course c.ID.
func (r *Courses) Update(ctx context.Context, c Course) error {
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET course_name = $1, course_code = $2 WHERE id = $3`, c.Name, c.Code, c.ID)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "update course %d", c.ID)
	}
	return mustAffect(res, "course", c.ID)
}

// Delete removes a course. Courses still referenced by sections, students
// or events fail with store.ErrReferenced.
func (r *Courses) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "delete course %d", id)
	}
	return mustAffect(res, "course", id)
}

func mustAffect(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, "%s %d", what, id)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
