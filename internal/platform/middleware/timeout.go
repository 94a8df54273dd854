package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Timeout wraps the request context with a deadline. Streaming endpoints
// are exempt because a chat response can legitimately outlive any sane
// request deadline.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isStreaming(c) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func isStreaming(c echo.Context) bool {
	if strings.HasSuffix(c.Path(), "/stream") {
		return true
	}
	return strings.Contains(c.Request().Header.Get("Accept"), "text/event-stream")
}
