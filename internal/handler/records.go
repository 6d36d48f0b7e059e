package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-identity/internal/middleware"
	"github.com/iliyamo/donation-identity/internal/model"
)

// ContractStore is the storage "create contract record" capability.
type ContractStore interface {
	Create(ctx context.Context, c *model.Contract) (uint64, error)
}

// DonationStore is the storage "create donation record" capability.
type DonationStore interface {
	Create(ctx context.Context, d *model.Donation) (uint64, error)
}

// RecordHandler creates records owned by the session's principal. The
// owner id always comes from the token, never from the body.
type RecordHandler struct {
	Contracts ContractStore
	Donations DonationStore
}

func NewRecordHandler(c ContractStore, d DonationStore) *RecordHandler {
	return &RecordHandler{Contracts: c, Donations: d}
}

type contractReq struct {
	StudentID uint64 `json:"studentId" validate:"required"`
	Title     string `json:"title" validate:"required,max=255"`
}

type donationReq struct {
	AmountCents uint64 `json:"amountCents" validate:"gt=0"`
	Note        string `json:"note" validate:"max=500"`
}

// CreateContract: POST /v1/contracts (AMBASSADOR, ADMIN)
func (h *RecordHandler) CreateContract(c echo.Context) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token required"})
	}
	var req contractReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rec := model.Contract{AmbassadorID: claims.UserID, StudentID: req.StudentID, Title: req.Title}
	id, err := h.Contracts.Create(ctx, &rec)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create contract failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// CreateDonation: POST /v1/donations (DONOR)
func (h *RecordHandler) CreateDonation(c echo.Context) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token required"})
	}
	var req donationReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rec := model.Donation{DonorID: claims.UserID, AmountCents: req.AmountCents, Note: req.Note}
	id, err := h.Donations.Create(ctx, &rec)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create donation failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}
