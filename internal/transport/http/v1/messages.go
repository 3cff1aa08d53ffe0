package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

// SendMessage runs one conversational turn.
// POST /api/chat/message
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
	}

	resp, err := h.service.SendMessage(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
