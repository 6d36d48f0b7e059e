package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-identity/internal/model"
)

// AccountAdmin reads and moderates users rows. *service.Identity
// satisfies it.
type AccountAdmin interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
	SetStatus(ctx context.Context, id uint64, status string) (model.User, error)
}

// AdminHandler serves /v1/admin. Routes sit behind RequireAdmin.
type AdminHandler struct {
	Accounts AccountAdmin
}

func NewAdminHandler(a AccountAdmin) *AdminHandler { return &AdminHandler{Accounts: a} }

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// userView is the administrator's view of a users row. Secrets and the
// outstanding challenge are never serialized.
type userView struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	FamilyName  *string    `json:"familyName,omitempty"`
	Email       *string    `json:"email,omitempty"`
	PhoneNumber *string    `json:"phoneNumber,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	NationalID  *string    `json:"nationalId,omitempty"`
	BirthDate   *time.Time `json:"birthDate,omitempty"`
	City        *string    `json:"city,omitempty"`
	Region      *string    `json:"region,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func viewOf(u model.User) userView {
	return userView{
		ID: u.ID, Name: u.Name, FamilyName: u.FamilyName, Email: u.Email, PhoneNumber: u.PhoneNumber,
		Role: u.Role, Status: u.Status, NationalID: u.NationalID, BirthDate: u.BirthDate,
		City: u.City, Region: u.Region, CreatedAt: u.CreatedAt,
	}
}

// GetUser: GET /v1/admin/users/:id
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Accounts.GetUser(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(u))
}

// SetStatus: PATCH /v1/admin/users/:id/status
func (h *AdminHandler) SetStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Accounts.SetStatus(ctx, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(u))
}
