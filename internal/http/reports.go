package http

import (
	"net/http"

	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// dailyVolumeHandler serves GET /api/contacts/reports/daily?days= from the
// ClickHouse mirror.
func dailyVolumeHandler(chRepo repository.CHContactsRepository, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if chRepo == nil {
			return fail(c, http.StatusServiceUnavailable, "Analytics store not configured")
		}

		days := intParam(c, "days", 30)
		if days < 1 || days > 366 {
			return fail(c, http.StatusBadRequest, "days must be between 1 and 366")
		}

		rows, err := chRepo.DailyVolume(c.Request().Context(), days)
		if err != nil {
			log.Error("clickhouse daily volume failed", zap.Error(err))
			return fail(c, http.StatusInternalServerError, "Query failed")
		}

		return ok(c, http.StatusOK, map[string]any{
			"days":  days,
			"count": len(rows),
			"data":  rows,
		})
	}
}
