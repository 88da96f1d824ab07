package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/event"
)

type eventRequest struct {
	Name       string  `json:"event_name" binding:"required"`
	Date       string  `json:"event_date" binding:"required"`
	StartTime  string  `json:"start_time" binding:"required,clock"`
	EndTime    string  `json:"end_time" binding:"required,clock"`
	FineAmount float64 `json:"fine_amount" binding:"min=0"`
	CourseID   *int64  `json:"course_id" binding:"omitempty,gt=0"`

	AMInStart  *string `json:"am_in_start_time" binding:"omitempty,clock"`
	AMInEnd    *string `json:"am_in_end_time" binding:"omitempty,clock"`
	AMOutStart *string `json:"am_out_start_time" binding:"omitempty,clock"`
	AMOutEnd   *string `json:"am_out_end_time" binding:"omitempty,clock"`
	PMInStart  *string `json:"pm_in_start_time" binding:"omitempty,clock"`
	PMInEnd    *string `json:"pm_in_end_time" binding:"omitempty,clock"`
	PMOutStart *string `json:"pm_out_start_time" binding:"omitempty,clock"`
	PMOutEnd   *string `json:"pm_out_end_time" binding:"omitempty,clock"`
}

func (h *Handler) bindEvent(c *gin.Context) (event.Event, bool) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return event.Event{}, false
	}
	date, err := parseDate(req.Date, h.deps.Location)
	if err != nil {
		respondError(c, err)
		return event.Event{}, false
	}
	e := event.Event{
		Name: req.Name, Date: date, StartTime: req.StartTime, EndTime: req.EndTime,
		FineAmount: req.FineAmount, CourseID: req.CourseID,
		AMInStart: req.AMInStart, AMInEnd: req.AMInEnd, AMOutStart: req.AMOutStart, AMOutEnd: req.AMOutEnd,
		PMInStart: req.PMInStart, PMInEnd: req.PMInEnd, PMOutStart: req.PMOutStart, PMOutEnd: req.PMOutEnd,
	}
	if err := e.Validate(); err != nil {
		respondError(c, err)
		return event.Event{}, false
	}
	return e, true
}

func (h *Handler) listEvents(c *gin.Context) {
	list, err := h.events.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []event.Event{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) createEvent(c *gin.Context) {
	e, ok := h.bindEvent(c)
	if !ok {
		return
	}
	id, err := h.events.Create(c.Request.Context(), e)
	if err != nil {
		respondError(c, err)
		return
	}
	created, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, ok := h.bindEvent(c)
	if !ok {
		return
	}
	e.ID = id
	if err := h.events.Update(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}
	updated, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
