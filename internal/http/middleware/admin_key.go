package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const HeaderAPIKey = "X-API-Key"

// AdminKeyMiddleware authenticates admin requests using the X-API-Key header
// (or a Bearer token). With no keys configured every request passes.
func AdminKeyMiddleware(keys []string) echo.MiddlewareFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(allowed) == 0 {
			return next
		}
		return func(c echo.Context) error {
			key := requestKey(c.Request())
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "Missing API key"})
			}
			for _, a := range allowed {
				if subtle.ConstantTimeCompare(a, []byte(key)) == 1 {
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid API key"})
		}
	}
}

func requestKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); k != "" {
		return k
	}
	if auth := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
