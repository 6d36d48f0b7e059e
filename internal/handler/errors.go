package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-identity/internal/service"
)

// writeError maps a service error onto its status code and a JSON body of
// the form {"error": "..."}. Provider failures add the provider's text under
// "detail" for operators.
func writeError(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		ce *service.ConflictError
		pe *service.ProviderError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Reason})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{"error": ce.Error(), "field": ce.Field})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrInvalidOrExpiredOTP):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrInvalidOrExpiredOTP.Error()})
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": service.ErrRateLimited.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.As(err, &pe):
		c.Logger().Errorf("oauth provider: %v", pe)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": pe.Stage.Error(), "detail": pe.Detail})
	case errors.Is(err, service.ErrOAuthNotConfigured):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
}
