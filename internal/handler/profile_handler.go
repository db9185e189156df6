package handler

import (
	"log/slog"
	"net/http"

	"edupair/internal/model"
	"edupair/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the caller's profile and dashboard views
type ProfileHandler struct {
	service service.ProfileService
	logger  *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(s service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: s, logger: logger}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), username)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) GetSummary(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), username)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// updateProfile returns a handler replying with msg on success. POST and PUT
// replace the profile the same way and differ only in the reply.
func (h *ProfileHandler) updateProfile(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, err := getAuthUsername(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		var req model.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if err := h.service.UpdateProfile(c.Request.Context(), username, req); err != nil {
			respondError(c, h.logger, err, "Failed to update profile")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

// RegisterProfileRoutes registers profile routes behind authMW
func (h *ProfileHandler) RegisterProfileRoutes(r gin.IRouter, authMW gin.HandlerFunc) {
	r.GET("/profile", authMW, h.GetProfile)
	r.GET("/dashboard", authMW, h.GetProfile)
	r.GET("/me", authMW, h.GetSummary)
	r.POST("/profile", authMW, h.updateProfile("Profile updated"))
	r.PUT("/profile", authMW, h.updateProfile("Profile updated successfully!"))
}
