package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jlynch25/eventreg/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createUserRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	University     string `json:"university"`
	Department     string `json:"department"`
	UniversityYear string `json:"universityYear"`
}

type createEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date" binding:"required"`
}

type registerRequest struct {
	EventID string `json:"eventId"`
}

type registerResponse struct {
	Msg              string               `json:"msg"`
	RegisteredEvents []primitive.ObjectID `json:"registeredEvents"`
}

// CreateUser --> POST /api/users
func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Msg: "Invalid request payload"})
		return
	}

	user, err := s.svc.CreateUser(c.Request.Context(), service.NewUser{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		University:     req.University,
		Department:     req.Department,
		UniversityYear: req.UniversityYear,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Me --> GET /api/users/me
func (s *Server) Me(c *gin.Context) {
	user, err := s.svc.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateEvent --> POST /api/events
func (s *Server) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Msg: "Invalid request payload"})
		return
	}

	event, err := s.svc.CreateEvent(c.Request.Context(), currentUser(c), service.NewEvent{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ListEvents --> GET /api/events
func (s *Server) ListEvents(c *gin.Context) {
	events, err := s.svc.ListEvents(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetEvent --> GET /api/events/:id
func (s *Server) GetEvent(c *gin.Context) {
	event, err := s.svc.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Register --> POST /api/events/register
func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	// a missing or unreadable body leaves EventID empty, which the service
	// rejects as an invalid id
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
	}

	registered, err := s.svc.Register(c.Request.Context(), currentUser(c), req.EventID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, registerResponse{
		Msg:              service.MsgRegistered,
		RegisteredEvents: registered,
	})
}

// RegisteredEvents --> GET /api/events/registered
func (s *Server) RegisteredEvents(c *gin.Context) {
	events, err := s.svc.RegisteredEvents(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Health --> GET /healthz
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
