// Package v1 provides the HTTP handlers of the chat API.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/relay/internal/domain"
	"github.com/xiaot623/gogo/relay/internal/hub"
	"github.com/xiaot623/gogo/relay/internal/service"
)

const (
	apiName    = "AI Chatbot API"
	apiVersion = "1.0.0"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new handler. h may be nil, which disables the events route.
func NewHandler(service *service.Service, h *hub.Hub) *Handler {
	return &Handler{
		service: service,
		hub:     h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: slog.Default().With("component", "http"),
	}
}

// RegisterRoutes registers the chat routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/chat")
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:session_id", h.GetSessionHistory)
	api.DELETE("/sessions/:session_id", h.DeleteSession)
	api.POST("/message", h.SendMessage)
	if h.hub != nil {
		api.GET("/sessions/:session_id/events", h.SessionEvents)
	}

	e.GET("/", h.Root)
	e.GET("/health", h.Health)
}

// Root describes the API.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": apiName,
		"version": apiVersion,
		"model":   h.service.Model(),
	})
}

// Health reports whether the store answers.
func (h *Handler) Health(c echo.Context) error {
	if err := h.service.Ping(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
		})
	}

	resp := map[string]interface{}{"status": "healthy"}
	if h.hub != nil {
		resp["connections"] = h.hub.ConnectionCount()
	}
	return c.JSON(http.StatusOK, resp)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Detail string `json:"detail"`
}

// writeError maps service errors to HTTP statuses.
func (h *Handler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Detail: "Session not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("store unavailable", "path", c.Path(), "error", err)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: "Service temporarily unavailable"})
	default:
		h.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
	}
}
