package server

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/bsdetector/internal/analysis"
	"github.com/ppiankov/bsdetector/internal/worker"
)

// RateLimit rejects clients over their token bucket with 429 and a
// Retry-After header in whole seconds
func RateLimit(limiter *worker.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, delay := limiter.Reserve(c.RealIP())
			if ok {
				return next(c)
			}

			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
			return c.JSON(analysis.HTTPStatus(analysis.KindLimited), analysis.ProxyError{
				Message: "rate limit exceeded",
				Kind:    analysis.KindLimited,
				Status:  analysis.HTTPStatus(analysis.KindLimited),
			})
		}
	}
}

func retryAfterSeconds(delay time.Duration) int {
	if delay > time.Hour {
		return int(time.Hour / time.Second)
	}
	return max(int(math.Ceil(delay.Seconds())), 1)
}
