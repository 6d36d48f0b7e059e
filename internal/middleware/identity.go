package middleware

// identity.go holds helpers shared across middleware files.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const guest = "guest"

// userID returns the authenticated user id placed by JWTAuth as a string,
// or "guest" when the request carries no session.
func userID(c echo.Context) string {
	if id, ok := c.Get(keyUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return guest
}
