package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/novinrelay/lead-relay/internal/model"
	"github.com/novinrelay/lead-relay/internal/phone"
	"github.com/novinrelay/lead-relay/internal/repository"
)

func listDeliveriesHandler(repo repository.DeliveriesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if repo == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "delivery log not configured"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var st model.DeliveryStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.DeliveryStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		number := phone.Normalize(strings.TrimSpace(c.QueryParam("phone")))

		rows, err := repo.ListRecent(c.Request().Context(), number, st, limit, offset)
		if err != nil {
			c.Logger().Errorf("deliveries list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
