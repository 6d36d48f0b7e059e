package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/service"
)

// StandingLookup re-reads a token subject's current role and status.
// *service.Identity satisfies it.
type StandingLookup interface {
	CurrentStanding(ctx context.Context, id uint64, role string) (service.Standing, error)
}

// RequireFresh re-fetches the principal on every request and lets it
// through only if its stored role is one of roles and its status is
// APPROVED. A role change, rejection or deletion therefore takes effect
// immediately instead of when the token expires. It assumes JWTAuth ran
// first.
func RequireFresh(lookup StandingLookup, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := Claims(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token required"})
			}
			st, err := lookup.CurrentStanding(c.Request().Context(), claims.UserID, claims.Role)
			switch {
			case errors.Is(err, service.ErrNotFound):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			case err != nil:
				c.Logger().Errorf("freshness lookup for %d: %v", claims.UserID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session check failed"})
			}
			if !allowed[st.Role] || st.Status != model.StatusApproved {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			c.Set(keyRole, st.Role)
			return next(c)
		}
	}
}

// RequireAdmin admits only APPROVED administrators, checked against the
// store on every request.
func RequireAdmin(lookup StandingLookup) echo.MiddlewareFunc {
	return RequireFresh(lookup, model.RoleAdmin)
}
