package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/donation-identity/internal/handler"    // endpoint handlers
	"github.com/iliyamo/donation-identity/internal/middleware" // session, role and throttle middleware
	"github.com/iliyamo/donation-identity/internal/model"
)

// Deps carries everything the routes need. Throttle guards the /v1/auth
// group; Revocations is nil when the revocation list is disabled.
type Deps struct {
	Auth        *handler.AuthHandler
	Admin       *handler.AdminHandler
	Records     *handler.RecordHandler
	Health      echo.HandlerFunc
	Sessions    middleware.TokenVerifier
	Revocations middleware.RevocationList
	Standing    middleware.StandingLookup
	Throttle    echo.MiddlewareFunc
}

// Register installs the request validator and every route on e.
func Register(e *echo.Echo, d Deps) {
	e.Validator = handler.NewRequestValidator()
	if d.Throttle == nil {
		d.Throttle = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// Liveness for load balancers.
	e.GET("/healthz", d.Health)

	jwt := middleware.JWTAuth(d.Sessions, d.Revocations)

	// Unauthenticated credential flows live under /v1/auth behind the
	// per-IP throttle. Logout needs a session to know what to revoke.
	a := e.Group("/v1/auth", d.Throttle)
	a.POST("/register", d.Auth.Register)
	a.POST("/verify-otp", d.Auth.VerifyOTP)
	a.POST("/login", d.Auth.Login)
	a.POST("/phone/request-otp", d.Auth.RequestPhoneOTP)
	a.POST("/phone/verify", d.Auth.VerifyPhoneOTP)
	a.POST("/forgot-password", d.Auth.ForgotPassword)
	a.POST("/reset-password", d.Auth.ResetPassword)
	a.GET("/google", d.Auth.GoogleRedirect)
	a.GET("/google/callback", d.Auth.GoogleCallback)
	a.POST("/logout", d.Auth.Logout, jwt)

	// Everything else under /v1 requires a valid session.
	v1 := e.Group("/v1", jwt)
	v1.GET("/me", d.Auth.Me)

	// Administrative routes re-check role and status against the store on
	// every request rather than trusting the token.
	admin := v1.Group("/admin", middleware.RequireAdmin(d.Standing))
	admin.GET("/users/:id", d.Admin.GetUser)
	admin.PATCH("/users/:id/status", d.Admin.SetStatus)

	v1.POST("/contracts", d.Records.CreateContract, middleware.RequireRole(model.RoleAmbassador, model.RoleAdmin))
	v1.POST("/donations", d.Records.CreateDonation, middleware.RequireRole(model.RoleDonor))
}
