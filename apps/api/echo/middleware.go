package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/services/ratelimit"
)

// roleMiddleware lets through callers holding any of `roles`.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id := getContextIdentity(ctx)
			if !id.IsAuthenticated() {
				return core.ErrUnauthenticated
			}
			for _, role := range roles {
				if id.Role == role {
					return next(ctx)
				}
			}
			return core.ErrForbidden
		}
	}
}

// rateLimitMiddleware limits requests per caller uid. Limiter errors are logged and the request goes through.
func rateLimitMiddleware(limiter ratelimit.Limiter, scope string, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			id := getContextIdentity(ctx)
			allowed, err := limiter.Allow(ctx.Request().Context(), scope+":"+id.UID)
			if err != nil {
				logger.Warn(fmt.Sprintf("rate limiter unavailable: %v", err), id)
			}
			if !allowed {
				return core.ErrRateLimited
			}
			return next(ctx)
		}
	}
}
