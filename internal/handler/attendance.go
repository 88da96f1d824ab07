package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"schoolportal/internal/attendance"
)

// decodeMarks accepts a single mark, an array of marks, or {"records": [...]}.
func decodeMarks(body []byte) ([]attendance.Mark, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.Wrap(errBadRequest, "empty body")
	}
	if body[0] == '[' {
		var marks []attendance.Mark
		if err := json.Unmarshal(body, &marks); err != nil {
			return nil, errors.Wrap(errBadRequest, err.Error())
		}
		return marks, nil
	}
	var wrapped struct {
		Records *[]attendance.Mark `json:"records"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, errors.Wrap(errBadRequest, err.Error())
	}
	if wrapped.Records != nil {
		return *wrapped.Records, nil
	}
	var m attendance.Mark
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, errors.Wrap(errBadRequest, err.Error())
	}
	return []attendance.Mark{m}, nil
}

func (h *Handler) recordAttendance(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		bad(c, err)
		return
	}
	marks, err := decodeMarks(body)
	if err != nil {
		respondError(c, err)
		return
	}
	n, err := h.attendance.Record(c.Request.Context(), marks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "count": n})
}

func (h *Handler) listAttendance(c *gin.Context) {
	eventID, ok := queryID(c, "eventId")
	if !ok {
		return
	}
	list, err := h.attendance.List(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []attendance.Record{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) attendanceSummary(c *gin.Context) {
	eventID, ok := queryID(c, "eventId")
	if !ok {
		return
	}
	list, err := h.attendance.Summaries(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []attendance.Summary{}
	}
	c.JSON(http.StatusOK, list)
}
