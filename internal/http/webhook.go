package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/novinrelay/lead-relay/internal/model"
	"github.com/novinrelay/lead-relay/internal/pipeline"
)

// webhookHandler acknowledges every classifiable event with 200; the upstream
// platform must never retry delivery because of a downstream SMS problem.
// Only unreadable bodies or a missing type tag are rejected.
func webhookHandler(pipe *pipeline.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		var event model.WebhookEvent
		if err := c.Bind(&event); err != nil {
			log.Warnf("webhook: bad payload: %v", err)
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
		}

		if strings.TrimSpace(event.Type) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing event type"})
		}

		res := pipe.Process(c.Request().Context(), event)

		return c.JSON(http.StatusOK, model.WebhookResponse{
			Status:  "success",
			Result:  res.State.String(),
			Message: res.Reason,
		})
	}
}
