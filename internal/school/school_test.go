package school

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/store"
)

func setupDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.NewDB("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func intp(n int) *int       { return &n }
func i64p(n int64) *int64   { return &n }
func strp(s string) *string { return &s }

func TestCourseAndSectionLifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	courses, sections := NewCourses(db.Client), NewSections(db.Client)

	bsit, err := courses.Create(ctx, Course{Name: "BS Information Technology", Code: "BSIT"}, now)
	require.NoError(t, err)
	bscs, err := courses.Create(ctx, Course{Name: "BS Computer Science", Code: "BSCS"}, now)
	require.NoError(t, err)

	a, err := sections.Create(ctx, Section{Name: "IT-1A", CourseID: bsit, Capacity: intp(40)}, now)
	require.NoError(t, err)
	_, err = sections.Create(ctx, Section{Name: "CS-1A", CourseID: bscs}, now)
	require.NoError(t, err)

	itOnly, err := sections.List(ctx, bsit)
	require.NoError(t, err)
	require.Len(t, itOnly, 1)
	assert.Equal(t, "IT-1A", itOnly[0].Name)
	require.NotNil(t, itOnly[0].CourseName)
	assert.Equal(t, "BS Information Technology", *itOnly[0].CourseName)

	require.NoError(t, sections.Update(ctx, Section{ID: a, Name: "IT-1B", CourseID: bsit}, now.Add(time.Hour)))
	require.NoError(t, sections.Deactivate(ctx, a, now.Add(2*time.Hour)))
	all, err := sections.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1, "deactivated sections are hidden")

	err = courses.Delete(ctx, bsit)
	assert.True(t, errors.Is(err, store.ErrReferenced), "course still referenced by a section: %v", err)

	require.NoError(t, courses.Update(ctx, Course{ID: bscs, Name: "Computer Science", Code: "CS"}))
	list, err := courses.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BS Information Technology", list[0].Name)
	assert.Equal(t, "Computer Science", list[1].Name)

	assert.True(t, errors.Is(courses.Delete(ctx, 999), store.ErrNotFound))
}

func TestStudentLifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	now := time.Now()
	course, err := NewCourses(db.Client).Create(ctx, Course{Name: "BSIT"}, now)
	require.NoError(t, err)
	students := NewStudents(db.Client)

	ana := Student{StudentNumber: "2024-001", FirstName: "Ana", LastName: "Cruz", YearLevel: intp(1), CourseID: i64p(course)}
	require.NoError(t, ana.Validate())
	anaID, err := students.Create(ctx, ana)
	require.NoError(t, err)
	benID, err := students.Create(ctx, Student{StudentNumber: "2024-002", FirstName: "Ben", LastName: "Abad"})
	require.NoError(t, err)

	_, err = students.Create(ctx, ana)
	assert.True(t, errors.Is(err, store.ErrConflict))

	list, err := students.List(ctx, StudentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Abad", list[0].LastName)

	byCourse, err := students.List(ctx, StudentFilter{CourseID: course})
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	assert.Equal(t, anaID, byCourse[0].ID)
	require.NotNil(t, byCourse[0].CourseName)
	assert.Equal(t, "BSIT", *byCourse[0].CourseName)

	require.NoError(t, students.SetFaceEncoding(ctx, anaID, "[0.1,0.2,0.3]"))
	require.NoError(t, students.SetPhoto(ctx, anaID, "https://img.example/ana.jpg"))
	enrolled, err := students.List(ctx, StudentFilter{Enrolled: true})
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "[0.1,0.2,0.3]", *enrolled[0].FaceEncoding)

	ana.ID = anaID
	ana.FirstName = "Anna"
	require.NoError(t, students.Update(ctx, ana))
	got, err := students.Get(ctx, anaID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)
	assert.Equal(t, "https://img.example/ana.jpg", *got.Photo, "profile update keeps the photo")

	require.NoError(t, students.Deactivate(ctx, benID))
	list, err = students.List(ctx, StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	ben, err := students.Get(ctx, benID)
	require.NoError(t, err)
	assert.False(t, ben.IsActive)

	_, err = students.Get(ctx, 999)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(students.SetPhoto(ctx, 999, "x"), store.ErrNotFound))
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Student{FirstName: "A", LastName: "B"}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Student{StudentNumber: "1", FirstName: "A", LastName: "B", YearLevel: intp(9)}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Course{Name: "  "}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Section{Name: "A"}.Validate(), ErrInvalid)
	assert.NoError(t, Section{Name: "A", CourseID: 1, InstructorName: strp("Ms. Santos")}.Validate())
}
