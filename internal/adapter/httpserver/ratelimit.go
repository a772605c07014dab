package httpserver

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter limits one route group per client IP. Each group gets its
// own store so OAuth redirects cannot starve session bootstraps.
// echo hands the deny result to c.Error and returns nil, so the 429 is
// written here rather than by apperrors.Middleware.
func newRateLimiter(group string, ratePerSecond float64, burst int, record apperrors.Recorder) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})
	retryAfter := strconv.Itoa(retryAfterSeconds(ratePerSecond))

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			c.Response().Header().Set("Retry-After", retryAfter)
			denied := apperrors.RateLimitedError("rate limit exceeded").
				WithContext("client_ip", identifier).
				WithContext("limiter", group)
			return apperrors.Render(c, denied, record)
		},
	})
}

// retryAfterSeconds is the time until one token is refilled, at least a second.
func retryAfterSeconds(ratePerSecond float64) int {
	if ratePerSecond <= 0 {
		return 60
	}
	return max(1, int(math.Ceil(1/ratePerSecond)))
}
