package school

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// Section is a class group within a course.
type Section struct {
	ID             int64     `json:"id"`
	Name           string    `json:"section_name"`
	CourseID       int64     `json:"course_id"`
	Capacity       *int      `json:"capacity"`
	InstructorName *string   `json:"instructor_name"`
	Semester       *string   `json:"semester"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CourseName     *string   `json:"course_name,omitempty"`
}

// Validate checks the fields required to save a section.
func (s Section) Validate() error {
	if strings.TrimSpace(s.Name) == "" || s.CourseID <= 0 {
		return errors.Wrap(ErrInvalid, "section name and course are required")
	}
	if s.Capacity != nil && *s.Capacity < 0 {
		return errors.Wrap(ErrInvalid, "capacity must not be negative")
	}
	return nil
}

// Sections persists sections.
type Sections struct {
	db *sql.DB
}

// NewSections creates a repo.
func NewSections(db *sql.DB) *Sections {
	return &Sections{db: db}
}

// List returns active sections, optionally restricted to one course.
func (r *Sections) List(ctx context.Context, courseID int64) ([]Section, error) {
	query := `
		SELECT sec.id, sec.section_name, sec.course_id, sec.capacity, sec.instructor_name, sec.semester,
		       sec.is_active, sec.created_at, sec.updated_at, c.course_name
		FROM sections sec
		LEFT JOIN courses c ON sec.course_id = c.id
		WHERE sec.is_active = TRUE`
	var args []any
	if courseID > 0 {
		query += " AND sec.course_id = $1"
		args = append(args, courseID)
	}
	query += " ORDER BY sec.section_name, sec.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list sections")
	}
	defer rows.Close()
	var res []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.Name, &s.CourseID, &s.Capacity, &s.InstructorName, &s.Semester,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt, &s.CourseName); err != nil {
			return nil, errors.Wrap(err, "scan section")
		}
		res = append(res, s)
	}
	return res, errors.Wrap(rows.Err(), "iterate sections")
}

// Create inserts s and returns its id.
func (r *Sections) Create(ctx context.Context, s Section, now time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sections (section_name, course_id, capacity, instructor_name, semester, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, s.Name, s.CourseID, s.Capacity, s.InstructorName, s.Semester, now).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(store.Classify(err), "create section")
	}
	return id, nil
}

// Update replaces the editable fields of s.ID.
func (r *Sections) Update(ctx context.Context, s Section, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sections
		SET section_name = $1, course_id = $2, capacity = $3, instructor_name = $4, semester = $5, updated_at = $6
		WHERE id = $7
	`, s.Name, s.CourseID, s.Capacity, s.InstructorName, s.Semester, now, s.ID)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "update section %d", s.ID)
	}
	return mustAffect(res, "section", s.ID)
}

// Deactivate hides a section from lists.
func (r *Sections) Deactivate(ctx context.Context, id int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sections SET is_active = FALSE, updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return errors.Wrapf(err, "deactivate section %d", id)
	}
	return mustAffect(res, "section", id)
}
