package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-identity/internal/service"
)

// GoogleRedirect sends the browser to the provider's consent screen.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	target, err := h.OAuth.BuildAuthURL()
	if err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, target)
}

// GoogleCallback finishes the code flow and hands the session to the
// frontend as ?token=...&user=... where user is the JSON user object.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if e := c.QueryParam("error"); e != "" {
		return writeError(c, &service.ProviderError{Stage: service.ErrTokenExchangeFailed, Detail: e})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*requestTimeout)
	defer cancel()

	s, err := h.OAuth.Complete(ctx, c.QueryParam("code"))
	if err != nil {
		return writeError(c, err)
	}
	user, err := json.Marshal(userOf(s.Principal))
	if err != nil {
		return writeError(c, err)
	}
	if h.Logger != nil {
		h.Logger.Infof("google login for user %d", s.Principal.ID())
	}

	target, err := url.Parse(h.FrontendURL)
	if err != nil {
		return writeError(c, err)
	}
	q := target.Query()
	q.Set("token", s.Token)
	q.Set("user", string(user))
	target.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, target.String())
}
