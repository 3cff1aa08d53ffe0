package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

// CreateSession creates a session.
// POST /api/chat/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return h.writeError(c, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
		}
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.Name)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// ListSessions lists sessions, most recently active first.
// GET /api/chat/sessions?limit=
func (h *Handler) ListSessions(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val < 1 {
			return h.writeError(c, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput))
		}
		limit = val
	}

	sessions, err := h.service.ListSessions(c.Request().Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSessionHistory returns a session with its messages.
// GET /api/chat/sessions/:session_id
func (h *Handler) GetSessionHistory(c echo.Context) error {
	history, err := h.service.GetSessionHistory(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

// DeleteSession deletes a session and its messages.
// DELETE /api/chat/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	resp, err := h.service.DeleteSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
