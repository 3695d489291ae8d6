package httpapi

import (
	"github.com/sponsorlink/dealcore/internal/middleware"
	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/money"
	"github.com/sponsorlink/dealcore/internal/privacy"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateDeal opens a deal against one of a channel's active ad formats;
// the channel's verified flag is not checked here. The escrow address and mnemonic are assigned later by the funding flow
// (out of scope here) — Create only takes the deal to PendingPayment.
func (a *API) CreateDeal(c *fiber.Ctx) error {
	var req createDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid body"})
	}

	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid channel_id"})
	}
	adFormatID, err := uuid.Parse(req.AdFormatID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid ad_format_id"})
	}

	format, err := a.adFormats.GetByID(c.Context(), adFormatID)
	if err != nil {
		return writeErr(c, err)
	}
	if format.ChannelID != channelID || !format.Active {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "ad_format_id does not belong to an active listing on channel_id"})
	}

	amountStr := req.Amount
	if amountStr == "" {
		amountStr = format.Price
	}
	amount, err := money.Parse(amountStr)
	if err != nil || !amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "amount must be a positive decimal"})
	}

	windowHours := req.VerificationWindowHours
	if windowHours <= 0 {
		windowHours = a.cfg.VerifyHoldHours
	}

	var reqs []models.DealRequirement
	if len(req.Requirements) > 0 {
		if len(req.Requirements) > models.MaxRequirementsPerDeal {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "a deal supports at most 10 requirements"})
		}
		reqs = make([]models.DealRequirement, len(req.Requirements))
		for i, rs := range req.Requirements {
			if !models.IsValidMetricType(rs.MetricType) {
				return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "unknown requirement metric_type: " + rs.MetricType})
			}
			reqs[i] = models.DealRequirement{MetricType: rs.MetricType, TargetValue: rs.TargetValue}
		}
	}

	ownerAlias, err := privacy.GenerateAlias(privacy.RoleOwner)
	if err != nil {
		return writeErr(c, err)
	}
	advertiserAlias, err := privacy.GenerateAlias(privacy.RoleAdvertiser)
	if err != nil {
		return writeErr(c, err)
	}

	deal := &models.Deal{
		ChannelID:               channelID,
		AdFormatID:              adFormatID,
		AdvertiserUserID:        middleware.GetUserID(c),
		Amount:                  amount.String(),
		PlatformFeePercent:      a.cfg.PlatformFeePercent,
		OwnerAlias:              ownerAlias,
		AdvertiserAlias:         advertiserAlias,
		VerificationWindowHours: windowHours,
	}

	created, err := a.engine.Create(c.Context(), deal, reqs)
	if err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(DataResponse{Data: created})
}

func (a *API) GetDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	deal, err := a.deals.GetByID(c.Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: deal})
}

func (a *API) ListDeals(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.DealFilter{Limit: 20, Offset: 0}

	switch c.Query("role") {
	case "owner":
		filter.OwnerUserID = &userID
	default:
		filter.AdvertiserUserID = &userID
	}
	if s := c.Query("status"); s != "" {
		filter.Status = &s
	}

	deals, err := a.deals.List(c.Context(), filter)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: deals})
}

// CancelDeal moves a deal still awaiting payment or creative work to
// Cancelled. Later-stage cancellation goes through the dispute protocol
// instead, so the allowed source statuses are narrow.
func (a *API) CancelDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	actorID := middleware.GetUserID(c)
	updated, err := a.engine.Transition(c.Context(), id, models.DealStatusCancelled, "cancelled_by_user", &actorID, nil)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: updated})
}

func (a *API) GetReceipt(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	receipt, err := a.receipts.GetByDealID(c.Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: receipt})
}
