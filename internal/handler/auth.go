package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"schoolportal/internal/admin"
	"schoolportal/internal/auth"
)

type sessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func userOf(cl auth.Claims) sessionUser {
	return sessionUser{ID: cl.AdminID, Username: cl.Username, FullName: cl.FullName, Role: cl.Role}
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}
	a, err := h.admins.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, admin.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	token, exp, err := h.deps.Signer.Issue(a.ID, a.Username, a.FullName, a.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.admins.RecordActivity(c.Request.Context(), a.ID, admin.ActivityLogin, h.now()); err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(h.deps.Signer.TTL.Seconds()), "/", "", h.deps.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"user":       sessionUser{ID: a.ID, Username: a.Username, FullName: a.FullName, Role: a.Role},
		"token":      token,
		"expires_at": exp.Unix(),
	})
}

func (h *Handler) logout(c *gin.Context) {
	if cl, ok := auth.FromContext(c); ok {
		if err := h.admins.RecordActivity(c.Request.Context(), cl.AdminID, admin.ActivityLogout, h.now()); err != nil {
			respondError(c, err)
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.deps.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) session(c *gin.Context) {
	cl, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": userOf(cl)})
}

func (h *Handler) me(c *gin.Context) {
	cl, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, userOf(cl))
}
