package handler

import (
	"context"  // request-scoped deadlines for store calls
	"net/http" // HTTP status codes
	"strings"  // identifier and role normalization
	"time"     // timeouts and birth dates

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/donation-identity/internal/middleware" // session claims placed by JWTAuth
	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/service" // identity core
)

// requestTimeout bounds every store round trip a handler makes.
const requestTimeout = 5 * time.Second

// Authenticator is the identity core as the auth endpoints use it.
// *service.Identity satisfies it.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (uint64, error)
	VerifyEmailOTP(ctx context.Context, email, code string) error
	Login(ctx context.Context, identifier, password string) (service.Session, error)
	RequestPhoneOTP(ctx context.Context, phone string) error
	VerifyPhoneOTP(ctx context.Context, phone, code string) (service.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// OAuthFlow is the Google bridge. *service.OAuthBridge satisfies it.
type OAuthFlow interface {
	BuildAuthURL() (string, error)
	Complete(ctx context.Context, code string) (service.Session, error)
}

// Revoker stores a token id on the revocation list.
// *repository.TokenRepo satisfies it.
type Revoker interface {
	Revoke(ctx context.Context, jti string, userID uint64, role string, exp time.Time) error
}

// AuthHandler bundles dependencies for auth endpoints. Tokens is nil when
// session revocation is disabled.
type AuthHandler struct {
	Identity    Authenticator
	OAuth       OAuthFlow
	Tokens      Revoker
	FrontendURL string
	Logger      *log.Logger
}

func NewAuthHandler(identity Authenticator, oauth OAuthFlow, tokens Revoker, frontendURL string, logger *log.Logger) *AuthHandler {
	return &AuthHandler{Identity: identity, OAuth: oauth, Tokens: tokens, FrontendURL: frontendURL, Logger: logger}
}

// ----- DTOs -----

type registerReq struct {
	Name        string `json:"name" validate:"required"`
	FamilyName  string `json:"familyName"`
	Email       string `json:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,phone"`
	Password    string `json:"password" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=ADMIN AMBASSADOR DONOR STUDENT"`
	NationalID  string `json:"nationalId" validate:"omitempty,nationalid"`
	BirthDate   string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	City        string `json:"city"`
	Region      string `json:"region"`
	FatherName  string `json:"fatherName"` // students only
	Location    string `json:"location"`   // students only
}

type verifyOTPReq struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

// loginReq accepts the identifier under any of three names; the first
// non-empty one wins.
type loginReq struct {
	Identifier  string `json:"identifier"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password" validate:"required"`
}

type phoneReq struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type phoneVerifyReq struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	OTP         string `json:"otp" validate:"required,len=6"`
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func userOf(p model.Principal) userPart {
	return userPart{ID: p.ID(), Role: p.Role(), Name: p.Name(), Email: p.Email()}
}

// Register: create a principal; non-students are sent a verification code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	in := service.RegisterInput{
		Name:        req.Name,
		FamilyName:  req.FamilyName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Role:        req.Role,
		NationalID:  req.NationalID,
		City:        req.City,
		Region:      req.Region,
		FatherName:  req.FatherName,
		Location:    req.Location,
	}
	if req.BirthDate != "" {
		d, _ := time.Parse("2006-01-02", req.BirthDate) // format checked by the validator
		in.BirthDate = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := h.Identity.Register(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	msg := "registered; verification code sent"
	if req.Role == model.RoleStudent {
		msg = "registered"
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg, "userId": id})
}

// VerifyOTP: consume the registration code sent to an email.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Identity.VerifyEmailOTP(ctx, req.Email, req.OTP); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "otp verified"})
}

// Login: password login by email or phone.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	identifier := firstNonEmpty(req.Identifier, req.Email, req.PhoneNumber)
	if identifier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email or phoneNumber is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Identity.Login(ctx, identifier, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   s.Token,
		"user":    userOf(s.Principal),
	})
}

// RequestPhoneOTP: step one of passwordless phone login.
func (h *AuthHandler) RequestPhoneOTP(c echo.Context) error {
	var req phoneReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Identity.RequestPhoneOTP(ctx, req.PhoneNumber); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "otp sent"})
}

// VerifyPhoneOTP: step two; a PENDING account is approved here.
func (h *AuthHandler) VerifyPhoneOTP(c echo.Context) error {
	var req phoneVerifyReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Identity.VerifyPhoneOTP(ctx, req.PhoneNumber, req.OTP)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "login successful",
		"token":   s.Token,
		"user":    userOf(s.Principal),
	})
}

// ForgotPassword: email a reset code.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Identity.ForgotPassword(ctx, req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "otp sent"})
}

// ResetPassword: replace the password using the emailed code.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Identity.ResetPassword(ctx, req.Email, req.OTP, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Logout: put the presented token on the revocation list when the list is
// enabled. Without it sessions are stateless and the client just drops the
// token.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token required"})
	}
	if h.Tokens == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "logged out", "revoked": false})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := h.Tokens.Revoke(ctx, claims.ID, claims.UserID, claims.Role, exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out", "revoked": true})
}

// Me: the {id, role} carried by the session.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token required"})
	}
	resp := echo.Map{"id": claims.UserID, "role": claims.Role}
	if claims.ExpiresAt != nil {
		resp["expiresAt"] = claims.ExpiresAt.Time
	}
	return c.JSON(http.StatusOK, resp)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
