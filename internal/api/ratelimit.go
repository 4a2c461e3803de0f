package api

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// IntakeRateLimit returns middleware that rejects requests beyond perSecond
// sustained with the given burst. A non-positive rate disables limiting.
func IntakeRateLimit(perSecond float64, burst int) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return NewTooManyRequestsError("too many uploads, slow down")
			}
			return next(c)
		}
	}
}
