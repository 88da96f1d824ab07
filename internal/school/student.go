package school

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// ErrInvalid marks a record that fails validation.
var ErrInvalid = errors.New("invalid record")

// Student is an enrolled learner. FaceEncoding holds the JSON array of the
// enrolled face descriptor, when one exists.
type Student struct {
	ID            int64   `json:"id"`
	StudentNumber string  `json:"student_number"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	YearLevel     *int    `json:"year_level"`
	CourseID      *int64  `json:"course_id"`
	SectionID     *int64  `json:"section_id"`
	FaceEncoding  *string `json:"face_encoding,omitempty"`
	Photo         *string `json:"photo"`
	IsActive      bool    `json:"is_active"`

	CourseName  *string `json:"course_name,omitempty"`
	SectionName *string `json:"section_name,omitempty"`
}

// Validate checks the fields required to save a student.
func (s Student) Validate() error {
	if strings.TrimSpace(s.StudentNumber) == "" || strings.TrimSpace(s.FirstName) == "" || strings.TrimSpace(s.LastName) == "" {
		return errors.Wrap(ErrInvalid, "student number, first name and last name are required")
	}
	if s.YearLevel != nil && (*s.YearLevel < 1 || *s.YearLevel > 6) {
		return errors.Wrap(ErrInvalid, "year level must be between 1 and 6")
	}
	return nil
}

// StudentFilter narrows List.
type StudentFilter struct {
	CourseID  int64
	SectionID int64
	// Enrolled keeps only students with a stored face encoding.
	Enrolled bool
}

// Students persists students.
type Students struct {
	db *sql.DB
}

// NewStudents creates a repo.
func NewStudents(db *sql.DB) *Students {
	return &Students{db: db}
}

const studentColumns = `
	SELECT s.id, s.student_number, s.first_name, s.last_name, s.year_level, s.course_id, s.section_id,
	       s.face_encoding, s.photo, s.is_active, c.course_name, sec.section_name
	FROM students s
	LEFT JOIN courses c ON s.course_id = c.id
	LEFT JOIN sections sec ON s.section_id = sec.id
`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.YearLevel, &s.CourseID, &s.SectionID,
		&s.FaceEncoding, &s.Photo, &s.IsActive, &s.CourseName, &s.SectionName)
	return s, err
}

// List returns active students ordered by name.
func (r *Students) List(ctx context.Context, f StudentFilter) ([]Student, error) {
	query := studentColumns + " WHERE s.is_active = TRUE"
	var args []any
	if f.CourseID > 0 {
		args = append(args, f.CourseID)
		query += " AND s.course_id = $1"
	}
	if f.SectionID > 0 {
		args = append(args, f.SectionID)
		query += " AND s.section_id = $" + itoa(len(args))
	}
	if f.Enrolled {
		query += " AND s.face_encoding IS NOT NULL AND s.face_encoding <> ''"
	}
	query += " ORDER BY s.last_name, s.first_name, s.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan student")
		}
		res = append(res, s)
	}
	return res, errors.Wrap(rows.Err(), "iterate students")
}

// Get returns one student, active or not.
func (r *Students) Get(ctx context.Context, id int64) (Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, studentColumns+" WHERE s.id = $1", id))
	if err != nil {
		return Student{}, errors.Wrapf(store.Classify(err), "get student %d", id)
	}
	return s, nil
}

// Create inserts s and returns its id.
func (r *Students) Create(ctx context.Context, s Student) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO students (student_number, first_name, last_name, year_level, course_id, section_id, face_encoding, photo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, s.StudentNumber, s.FirstName, s.LastName, s.YearLevel, s.CourseID, s.SectionID, s.FaceEncoding, s.Photo).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(store.Classify(err), "create student")
	}
	return id, nil
}

// Update replaces the profile fields of s.ID. Face encoding and photo are
// owned by enrollment and left untouched.
func (r *Students) Update(ctx context.Context, s Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET student_number = $1, first_name = $2, last_name = $3, year_level = $4, course_id = $5, section_id = $6
		WHERE id = $7
	`, s.StudentNumber, s.FirstName, s.LastName, s.YearLevel, s.CourseID, s.SectionID, s.ID)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "update student %d", s.ID)
	}
	return mustAffect(res, "student", s.ID)
}

// Deactivate hides a student from lists while keeping attendance history.
func (r *Students) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "deactivate student %d", id)
	}
	return mustAffect(res, "student", id)
}

// SetPhoto stores the hosted photo URL.
func (r *Students) SetPhoto(ctx context.Context, id int64, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET photo = $1 WHERE id = $2`, url, id)
	if err != nil {
		return errors.Wrapf(err, "set photo of student %d", id)
	}
	return mustAffect(res, "student", id)
}

// SetFaceEncoding stores the enrolled descriptor as its JSON text.
func (r *Students) SetFaceEncoding(ctx context.Context, id int64, encoding string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET face_encoding = $1 WHERE id = $2`, encoding, id)
	if err != nil {
		return errors.Wrapf(err, "set face encoding of student %d", id)
	}
	return mustAffect(res, "student", id)
}
