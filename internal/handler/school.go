package handler

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/queue"
	"schoolportal/internal/school"
)

type studentRequest struct {
	StudentNumber string `json:"student_number" binding:"required"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	YearLevel     *int   `json:"year_level" binding:"omitempty,min=1,max=6"`
	CourseID      *int64 `json:"course_id" binding:"omitempty,gt=0"`
	SectionID     *int64 `json:"section_id" binding:"omitempty,gt=0"`
}

func (r studentRequest) student() school.Student {
	return school.Student{
		StudentNumber: r.StudentNumber,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		YearLevel:     r.YearLevel,
		CourseID:      r.CourseID,
		SectionID:     r.SectionID,
		IsActive:      true,
	}
}

func (h *Handler) listStudents(c *gin.Context) {
	courseID, ok := queryID(c, "course_id")
	if !ok {
		return
	}
	sectionID, ok := queryID(c, "section_id")
	if !ok {
		return
	}
	enrolled, _ := strconv.ParseBool(c.DefaultQuery("enrolled", "false"))
	list, err := h.students.List(c.Request.Context(), school.StudentFilter{CourseID: courseID, SectionID: sectionID, Enrolled: enrolled})
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []school.Student{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) createStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	s := req.student()
	if err := s.Validate(); err != nil {
		respondError(c, err)
		return
	}
	id, err := h.students.Create(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}
	s.ID = id
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) updateStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	s := req.student()
	s.ID = id
	if err := s.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := h.students.Update(c.Request.Context(), s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.students.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

const maxPhotoBytes = 5 << 20

// uploadPhoto stores a new photo and queues face enrollment for it.
func (h *Handler) uploadPhoto(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if h.deps.Photos == nil || !h.deps.Photos.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.students.Get(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo field required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(data) > maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 5 MB"})
		return
	}
	publicID := "student-" + strconv.FormatInt(id, 10)
	res, err := h.deps.Photos.UploadPhoto(ctx, data, filepath.Base(header.Filename), publicID)
	if err != nil {
		log.Printf("photo upload for student %d failed: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	if err := h.students.SetPhoto(ctx, id, res.SecureURL); err != nil {
		respondError(c, err)
		return
	}
	queued := h.enqueueEnroll(c, id, res.SecureURL)
	c.JSON(http.StatusOK, gin.H{"photo": res.SecureURL, "enrollment_queued": queued})
}

// enrollStudent queues face enrollment from the stored photo.
func (h *Handler) enrollStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if s.Photo == nil || *s.Photo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student has no photo"})
		return
	}
	if h.deps.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrollment queue not configured"})
		return
	}
	if !h.enqueueEnroll(c, id, *s.Photo) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrollment could not be queued"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

func (h *Handler) enqueueEnroll(c *gin.Context, studentID int64, photoURL string) bool {
	if h.deps.Queue == nil {
		return false
	}
	msg, err := queue.NewEnroll(queue.EnrollJob{StudentID: studentID, PhotoURL: photoURL})
	if err == nil {
		err = h.deps.Queue.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		log.Printf("queue publish failed for student %d: %v", studentID, err)
		return false
	}
	return true
}

type courseRequest struct {
	Name string `json:"course_name" binding:"required"`
	Code string `json:"course_code"`
}

func (h *Handler) listCourses(c *gin.Context) {
	list, err := h.courses.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []school.Course{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) createCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	course := school.Course{Name: req.Name, Code: req.Code, CreatedAt: h.now()}
	if err := course.Validate(); err != nil {
		respondError(c, err)
		return
	}
	id, err := h.courses.Create(c.Request.Context(), course, course.CreatedAt)
	if err != nil {
		respondError(c, err)
		return
	}
	course.ID = id
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) updateCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	course := school.Course{ID: id, Name: req.Name, Code: req.Code}
	if err := course.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := h.courses.Update(c.Request.Context(), course); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) deleteCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sectionRequest struct {
	Name           string  `json:"section_name" binding:"required"`
	CourseID       int64   `json:"course_id" binding:"required,gt=0"`
	Capacity       *int    `json:"capacity" binding:"omitempty,min=0"`
	InstructorName *string `json:"instructor_name"`
	Semester       *string `json:"semester"`
}

func (r sectionRequest) section() school.Section {
	return school.Section{
		Name:           r.Name,
		CourseID:       r.CourseID,
		Capacity:       r.Capacity,
		InstructorName: r.InstructorName,
		Semester:       r.Semester,
		IsActive:       true,
	}
}

func (h *Handler) listSections(c *gin.Context) {
	courseID, ok := queryID(c, "course_id")
	if !ok {
		return
	}
	list, err := h.sections.List(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []school.Section{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) createSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	s := req.section()
	if err := s.Validate(); err != nil {
		respondError(c, err)
		return
	}
	now := h.now()
	id, err := h.sections.Create(c.Request.Context(), s, now)
	if err != nil {
		respondError(c, err)
		return
	}
	s.ID, s.CreatedAt, s.UpdatedAt = id, now, now
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) updateSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	s := req.section()
	s.ID = id
	if err := s.Validate(); err != nil {
		respondError(c, err)
		return
	}
	s.UpdatedAt = h.now()
	if err := h.sections.Update(c.Request.Context(), s, s.UpdatedAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) deleteSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.sections.Deactivate(c.Request.Context(), id, h.now()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
