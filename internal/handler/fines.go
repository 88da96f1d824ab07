package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/fine"
)

type fineRequest struct {
	StudentID int64   `json:"student_id" binding:"required,gt=0"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Reason    string  `json:"reason" binding:"required"`
	Date      string  `json:"date" binding:"required"`
	Status    string  `json:"status" binding:"omitempty,oneof=paid unpaid"`
}

func (h *Handler) bindFine(c *gin.Context) (fine.Fine, bool) {
	var req fineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return fine.Fine{}, false
	}
	date, err := parseDate(req.Date, h.deps.Location)
	if err != nil {
		respondError(c, err)
		return fine.Fine{}, false
	}
	f := fine.Fine{StudentID: req.StudentID, Amount: req.Amount, Reason: req.Reason, Date: date, Status: req.Status}
	if err := f.Validate(); err != nil {
		respondError(c, err)
		return fine.Fine{}, false
	}
	return f, true
}

func (h *Handler) listFines(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != fine.StatusPaid && status != fine.StatusUnpaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be paid or unpaid"})
		return
	}
	list, err := h.fines.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []fine.Fine{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) createFine(c *gin.Context) {
	f, ok := h.bindFine(c)
	if !ok {
		return
	}
	now := h.now()
	id, err := h.fines.Create(c.Request.Context(), f, now)
	if err != nil {
		respondError(c, err)
		return
	}
	f.ID, f.CreatedAt = id, now
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) updateFine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	f, ok := h.bindFine(c)
	if !ok {
		return
	}
	f.ID = id
	if err := h.fines.Update(c.Request.Context(), f, h.now()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) deleteFine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.fines.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listReceipts(c *gin.Context) {
	list, err := h.fines.Receipts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []fine.Receipt{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) createReceipt(c *gin.Context) {
	var req struct {
		FineID        int64   `json:"fine_id" binding:"required,gt=0"`
		AmountPaid    float64 `json:"amount_paid" binding:"min=0"`
		PaymentMethod string  `json:"payment_method"`
		PaymentDate   string  `json:"payment_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	rc := fine.Receipt{FineID: req.FineID, AmountPaid: req.AmountPaid, PaymentMethod: req.PaymentMethod}
	if req.PaymentDate != "" {
		d, err := parseDate(req.PaymentDate, h.deps.Location)
		if err != nil {
			respondError(c, err)
			return
		}
		rc.PaymentDate = d
	}
	out, err := h.fines.Pay(c.Request.Context(), rc, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
