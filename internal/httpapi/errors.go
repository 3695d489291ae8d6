package httpapi

import (
	"errors"

	"github.com/sponsorlink/dealcore/internal/creative"
	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/dispute"
	"github.com/sponsorlink/dealcore/internal/requirement"
	"github.com/sponsorlink/dealcore/internal/saga"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/gofiber/fiber/v2"
)

// writeErr maps a core-package error to the taxonomy's HTTP status and a
// uniform body. Every handler in this package funnels its failures through
// here instead of picking a status code inline.
func writeErr(c *fiber.Ctx, err error) error {
	code, kind := classify(err)
	return c.Status(code).JSON(ErrorResponse{Error: kind, Message: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, creative.ErrForbidden),
		errors.Is(err, dispute.ErrForbidden),
		errors.Is(err, requirement.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, dealengine.ErrInvalidTransition),
		errors.Is(err, creative.ErrInvalidState),
		errors.Is(err, dispute.ErrInvalidState),
		errors.Is(err, requirement.ErrInvalidState):
		return fiber.StatusBadRequest, "invalid_transition"
	case errors.Is(err, dispute.ErrInvalidOutcome),
		errors.Is(err, dispute.ErrInvalidSplit),
		errors.Is(err, requirement.ErrNotCustom):
		return fiber.StatusBadRequest, "validation_failed"
	case errors.Is(err, dispute.ErrNoCounterProposal),
		errors.Is(err, dispute.ErrNotEscalated),
		errors.Is(err, creative.ErrNoSubmittedCreative),
		errors.Is(err, creative.ErrNoApprovedCreative),
		errors.Is(err, saga.ErrNoPayoutWallet):
		return fiber.StatusConflict, "conflict"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
