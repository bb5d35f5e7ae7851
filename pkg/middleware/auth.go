package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/fdtorres1/opusgraph/pkg/context"
	"github.com/labstack/echo/v4"
)

const (
	RoleContributor = "contributor"
	RoleAdmin       = "admin"
	RoleSuperAdmin  = "super_admin"
)

var roleRank = map[string]int{
	RoleContributor: 1,
	RoleAdmin:       2,
	RoleSuperAdmin:  3,
}

// RoleLookup resolves the role for a user ID.
type RoleLookup interface {
	GetRole(ctx echo.Context, userID string) (string, error)
}

// RoleLookupFunc adapts a function to the RoleLookup interface.
type RoleLookupFunc func(ctx echo.Context, userID string) (string, error)

func (f RoleLookupFunc) GetRole(ctx echo.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Auth resolves the acting user's role and attaches it to the request context.
// Requests without a user ID header are rejected.
func Auth(logger ectologger.Logger, lookup RoleLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			userID := context.GetUserID(ctx)
			if userID == "" {
				return httperror.NewHTTPError(http.StatusUnauthorized, "missing X-User-ID header")
			}

			role, err := lookup.GetRole(c, userID)
			if err != nil {
				logger.WithContext(ctx).WithError(err).WithField("user_id", userID).Error("failed to resolve user role")
				return err
			}

			ctx = context.SetUserRole(ctx, role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireRole rejects requests whose resolved role ranks below the minimum.
func RequireRole(minRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := context.GetUserRole(c.Request().Context())
			if roleRank[role] < roleRank[minRole] {
				return httperror.NewHTTPErrorf(http.StatusForbidden, "role %s is not permitted to perform this action", role)
			}
			return next(c)
		}
	}
}
