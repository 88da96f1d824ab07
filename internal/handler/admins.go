package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/admin"
	"schoolportal/internal/auth"
)

type adminRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password"`
	IsActive *bool  `json:"is_active"`
}

func (r adminRequest) admin() admin.Admin {
	a := admin.Admin{Username: r.Username, Email: r.Email, FullName: r.FullName, Role: r.Role, IsActive: true}
	if r.IsActive != nil {
		a.IsActive = *r.IsActive
	}
	return a
}

func (h *Handler) listAdmins(c *gin.Context) {
	list, err := h.admins.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []admin.Admin{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) createAdmin(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	a := req.admin()
	if err := a.Validate(req.Password, true); err != nil {
		respondError(c, err)
		return
	}
	now := h.now()
	id, err := h.admins.Create(c.Request.Context(), a, req.Password, now)
	if err != nil {
		respondError(c, err)
		return
	}
	a.ID, a.CreatedAt = id, now
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) updateAdmin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, err)
		return
	}
	a := req.admin()
	a.ID = id
	if err := a.Validate(req.Password, false); err != nil {
		respondError(c, err)
		return
	}
	if cl, _ := auth.FromContext(c); cl.AdminID == id && (!a.IsActive || a.Role != auth.RoleSuperadmin) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot demote or deactivate your own account"})
		return
	}
	if err := h.admins.Update(c.Request.Context(), a, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) deleteAdmin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if cl, _ := auth.FromContext(c); cl.AdminID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate your own account"})
		return
	}
	if err := h.admins.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) getDashboard(c *gin.Context) {
	cl, _ := auth.FromContext(c)
	ctx := c.Request.Context()
	overview, err := h.dashboard.Overview(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	role := cl.Role
	if role == auth.RoleSuperadmin {
		role = ""
	}
	stats, err := h.admins.LoginStats(ctx, role, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		stats = []admin.LoginStat{}
	}
	c.JSON(http.StatusOK, gin.H{"overview": overview, "login_stats": stats, "role": cl.Role})
}
