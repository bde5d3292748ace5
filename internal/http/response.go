package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/service/contact"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// contactView is the admin JSON shape of a contact.
type contactView struct {
	model.Contact
	ResponseTimeHours *float64 `json:"responseTimeHours"`
}

func viewOf(c model.Contact) contactView {
	return contactView{Contact: c, ResponseTimeHours: c.ResponseTimeHours()}
}

func viewsOf(cs []model.Contact) []contactView {
	out := make([]contactView, 0, len(cs))
	for _, c := range cs {
		out = append(out, viewOf(c))
	}
	return out
}

func ok(c echo.Context, status int, body map[string]any) error {
	body["success"] = true
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": false, "message": message})
}

// respondError maps service errors onto HTTP statuses.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var (
		verr *contact.ValidationError
		perr *contact.InvalidPriorityError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  verr.Violations,
		})
	case errors.As(err, &perr):
		return fail(c, http.StatusBadRequest, "Invalid priority level. Must be one of: low, medium, high, urgent")
	case errors.Is(err, contact.ErrNotFound):
		return fail(c, http.StatusNotFound, "Contact not found")
	default:
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return fail(c, http.StatusInternalServerError, "Server error")
	}
}

// errorHandler renders echo errors (unknown routes, oversized bodies,
// panics) in the same JSON envelope as handler errors.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			he  *echo.HTTPError
			msg = "Internal server error"
		)
		code := http.StatusInternalServerError
		if errors.As(err, &he) {
			code = he.Code
			switch code {
			case http.StatusNotFound:
				msg = "Route not found"
			case http.StatusMethodNotAllowed:
				msg = "Method not allowed"
			case http.StatusRequestEntityTooLarge:
				msg = "Request body too large"
			default:
				if m, isStr := he.Message.(string); isStr {
					msg = m
				}
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("server error", zap.String("path", c.Request().URL.Path), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = fail(c, code, msg)
	}
}
