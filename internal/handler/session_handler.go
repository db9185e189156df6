package handler

import (
	"log/slog"
	"net/http"

	"edupair/internal/model"
	"edupair/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles offering, listing and enrolling in sessions
type SessionHandler struct {
	service service.SessionService
	logger  *slog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(s service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: s, logger: logger}
}

func (h *SessionHandler) ListAvailable(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	sessions := []model.Session{}
	for session, err := range h.service.ListAvailable(c.Request.Context(), username) {
		if err != nil {
			respondError(c, h.logger, err, "Error retrieving sessions")
			return
		}
		sessions = append(sessions, session)
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) ListEnrolled(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	sessions, err := h.service.ListEnrolled(c.Request.Context(), username)
	if err != nil {
		respondError(c, h.logger, err, "Error fetching enrolled sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) Offer(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req model.OfferSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	if _, err := h.service.Offer(c.Request.Context(), username, req); err != nil {
		respondError(c, h.logger, err, "Failed to offer session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session offered successfully! You earned 5 credits."})
}

func (h *SessionHandler) Enroll(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.service.Enroll(c.Request.Context(), username, c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to enroll in session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully enrolled in the session"})
}

// RegisterSessionRoutes registers session routes behind authMW
func (h *SessionHandler) RegisterSessionRoutes(r gin.IRouter, authMW gin.HandlerFunc) {
	r.POST("/offer-session", authMW, h.Offer)

	sessions := r.Group("/sessions")
	sessions.Use(authMW)
	{
		sessions.GET("", h.ListAvailable)
		sessions.GET("/enrolled", h.ListEnrolled)
		sessions.POST("/:id/enroll", h.Enroll)
	}
}
