package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hackathon/internal/auth"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func adminView(a auth.Admin) gin.H {
	return gin.H{"id": a.ID, "username": a.Username}
}

func (h *Handler) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}
	a, tok, err := h.Admins.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      tok.Value,
		"expires_at": tok.ExpiresAt.Unix(),
		"admin":      adminView(a),
	})
}

func (h *Handler) createAdmin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}
	_, authenticated := auth.ClaimsFrom(c)
	a, err := h.Admins.Create(c.Request.Context(), req.Username, req.Password, authenticated)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Admin created successfully", "admin": adminView(a)})
}

func (h *Handler) me(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return
	}
	a, err := h.Admins.Me(c.Request.Context(), claims)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": adminView(a)})
}
