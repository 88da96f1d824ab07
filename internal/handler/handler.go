// Package handler exposes the portal over HTTP.
package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"schoolportal/internal/admin"
	"schoolportal/internal/attendance"
	"schoolportal/internal/auth"
	"schoolportal/internal/cloudinary"
	"schoolportal/internal/dashboard"
	"schoolportal/internal/event"
	"schoolportal/internal/fine"
	"schoolportal/internal/queue"
	"schoolportal/internal/school"
	"schoolportal/internal/store"
)

// errBadRequest marks malformed input caught in the handler itself.
var errBadRequest = errors.New("bad request")

// PhotoUploader stores student photos.
type PhotoUploader interface {
	Configured() bool
	UploadPhoto(ctx context.Context, data []byte, filename, publicID string) (*cloudinary.UploadResult, error)
}

// Deps are the collaborators of the HTTP layer. Queue and Photos are optional.
type Deps struct {
	DB           *store.DB
	Redis        *store.Redis
	Signer       *auth.Signer
	CookieSecure bool
	Location     *time.Location
	Queue        queue.Queue
	Photos       PhotoUploader
}

// Handler serves the /api routes.
type Handler struct {
	deps Deps
	now  func() time.Time

	students   *school.Students
	courses    *school.Courses
	sections   *school.Sections
	events     *event.Repository
	attendance *attendance.Service
	fines      *fine.Fines
	admins     *admin.Repository
	dashboard  *dashboard.Repository
}

// New builds a handler over d.DB.
func New(d Deps) *Handler {
	if d.Location == nil {
		d.Location = time.UTC
	}
	db := d.DB.Client
	return &Handler{
		deps:       d,
		now:        time.Now,
		students:   school.NewStudents(db),
		courses:    school.NewCourses(db),
		sections:   school.NewSections(db),
		events:     event.NewRepository(db),
		attendance: attendance.NewService(attendance.NewRepository(db), d.Location),
		fines:      fine.NewFines(db),
		admins:     admin.NewRepository(db),
		dashboard:  dashboard.NewRepository(db),
	}
}

// Register mounts health and every /api route on r.
func (h *Handler) Register(r *gin.Engine) {
	registerValidators()
	r.GET("/healthz", h.health)

	api := r.Group("/api", auth.Session(h.deps.Signer))

	api.POST("/auth/login", h.login)
	api.POST("/auth/logout", h.logout)
	api.GET("/auth/session", h.session)
	api.GET("/auth/me", h.me)

	api.GET("/dashboard", auth.Require(auth.R(auth.Dashboard)), h.getDashboard)

	api.GET("/students", auth.Require(auth.R(auth.Students)), h.listStudents)
	api.POST("/students", auth.Require(auth.W(auth.Students)), h.createStudent)
	api.GET("/students/:id", auth.Require(auth.R(auth.Students)), h.getStudent)
	api.PUT("/students/:id", auth.Require(auth.W(auth.Students)), h.updateStudent)
	api.DELETE("/students/:id", auth.Require(auth.W(auth.Students)), h.deleteStudent)
	api.POST("/students/:id/photo", auth.Require(auth.W(auth.Students)), h.uploadPhoto)
	api.POST("/students/:id/enroll", auth.Require(auth.W(auth.Students)), h.enrollStudent)

	api.GET("/courses", auth.Require(auth.R(auth.Courses)), h.listCourses)
	api.POST("/courses", auth.Require(auth.W(auth.Courses)), h.createCourse)
	api.PUT("/courses/:id", auth.Require(auth.W(auth.Courses)), h.updateCourse)
	api.DELETE("/courses/:id", auth.Require(auth.W(auth.Courses)), h.deleteCourse)

	api.GET("/sections", auth.Require(auth.R(auth.Sections)), h.listSections)
	api.POST("/sections", auth.Require(auth.W(auth.Sections)), h.createSection)
	api.PUT("/sections/:id", auth.Require(auth.W(auth.Sections)), h.updateSection)
	api.DELETE("/sections/:id", auth.Require(auth.W(auth.Sections)), h.deleteSection)

	api.GET("/events", auth.Require(auth.R(auth.Events)), h.listEvents)
	api.POST("/events", auth.Require(auth.W(auth.Events)), h.createEvent)
	api.GET("/events/:id", auth.Require(auth.R(auth.Events)), h.getEvent)
	api.PUT("/events/:id", auth.Require(auth.W(auth.Events)), h.updateEvent)
	api.DELETE("/events/:id", auth.Require(auth.W(auth.Events)), h.deleteEvent)

	api.GET("/attendance", auth.Require(auth.R(auth.Attendance)), h.listAttendance)
	api.POST("/attendance", auth.Require(auth.W(auth.Attendance)), h.recordAttendance)
	api.GET("/attendance/summary", auth.Require(auth.R(auth.Attendance)), h.attendanceSummary)

	api.GET("/fines", auth.Require(auth.R(auth.Fines)), h.listFines)
	api.POST("/fines", auth.Require(auth.W(auth.Fines)), h.createFine)
	api.PUT("/fines/:id", auth.Require(auth.W(auth.Fines)), h.updateFine)
	api.DELETE("/fines/:id", auth.Require(auth.W(auth.Fines)), h.deleteFine)

	api.GET("/fine-receipts", auth.Require(auth.R(auth.Receipts)), h.listReceipts)
	api.POST("/fine-receipts", auth.Require(auth.W(auth.Receipts)), h.createReceipt)

	api.GET("/admin-users", auth.Require(auth.R(auth.AdminUsers)), h.listAdmins)
	api.POST("/admin-users", auth.Require(auth.W(auth.AdminUsers)), h.createAdmin)
	api.PUT("/admin-users/:id", auth.Require(auth.W(auth.AdminUsers)), h.updateAdmin)
	api.DELETE("/admin-users/:id", auth.Require(auth.W(auth.AdminUsers)), h.deleteAdmin)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	dbHealthy := h.deps.DB.Healthy(ctx)
	body := gin.H{"status": "ok", "db": dbHealthy}
	status := http.StatusOK
	if h.deps.Redis != nil {
		redisHealthy := h.deps.Redis.Healthy(ctx)
		body["redis"] = redisHealthy
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
	}
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// respondError maps domain errors onto status codes. Unexpected errors are
// logged and reported generically.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrReferenced):
		c.JSON(http.StatusConflict, gin.H{"error": "Record is referenced by other data or references a missing record"})
	case errors.Is(err, errBadRequest),
		errors.Is(err, attendance.ErrInvalid),
		errors.Is(err, event.ErrInvalid),
		errors.Is(err, school.ErrInvalid),
		errors.Is(err, fine.ErrInvalid),
		errors.Is(err, admin.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func bad(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter. Absent
// yields zero.
func queryID(c *gin.Context, key string) (int64, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return id, true
}

// parseDate accepts "2006-01-02" or RFC 3339.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(errBadRequest, "invalid date %q", s)
	}
	return t, nil
}
