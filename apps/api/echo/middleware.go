package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core/account"
)

// roleMiddleware gates a route group to one role and pre-loads the
// authenticated account for downstream handlers. Run after jwtMiddleware.
func roleMiddleware(svc *account.Service, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role != role {
				return errHttpForbidden
			}
			if _, err := getContextAccount(ctx, svc, claims); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
