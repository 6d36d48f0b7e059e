package middleware // reusable HTTP middleware: authentication, role guards, throttling

import (
	"context"  // request context for revocation lookups
	"net/http" // HTTP status codes for responses
	"strings"  // bearer prefix handling

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/donation-identity/internal/utils" // session token verification
)

// Context keys set by JWTAuth.
const (
	keyUserID = "user_id"
	keyRole   = "role"
	keyClaims = "claims"
)

// TokenVerifier checks a raw session token. *utils.SessionIssuer satisfies it.
type TokenVerifier interface {
	Verify(raw string) (utils.SessionClaims, error)
}

// RevocationList reports whether a token id has been revoked.
// *repository.TokenRepo satisfies it.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects its {id, role} into the request context: handlers read them
// via c.Get("user_id") (uint64), c.Get("role") (string) or Claims(c).
// revoked may be nil, in which case no revocation lookup happens.
func JWTAuth(v TokenVerifier, revoked RevocationList) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header is "Bearer <token>"; anything else counts
			// as no token at all.
			auth := c.Request().Header.Get("Authorization")
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if !strings.HasPrefix(auth, "Bearer ") || raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token required"})
			}

			// Signature, algorithm, expiry and payload shape are all
			// checked by the verifier.
			claims, err := v.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			if revoked != nil {
				gone, err := revoked.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					c.Logger().Errorf("revocation lookup: %v", err)
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session check unavailable"})
				}
				if gone {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
			}

			c.Set(keyUserID, claims.UserID)
			c.Set(keyRole, claims.Role)
			c.Set(keyClaims, claims)
			return next(c)
		}
	}
}

// Claims returns the verified session placed by JWTAuth.
func Claims(c echo.Context) (utils.SessionClaims, bool) {
	claims, ok := c.Get(keyClaims).(utils.SessionClaims)
	return claims, ok
}
