package httpapi

import (
	"github.com/sponsorlink/dealcore/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (a *API) OpenDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req openDisputeRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "reason is required"})
	}

	d, err := a.disputes.Open(c.Context(), id, middleware.GetUserID(c), req.Reason)
	if err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(DataResponse{Data: d})
}

func (a *API) SubmitDisputeEvidence(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req submitEvidenceRequest
	if err := c.BodyParser(&req); err != nil || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "description is required"})
	}

	ev, err := a.disputes.SubmitEvidence(c.Context(), id, middleware.GetUserID(c), req.Description, req.URL)
	if err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(DataResponse{Data: ev})
}

func (a *API) ProposeDisputeResolution(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req proposeResolutionRequest
	if err := c.BodyParser(&req); err != nil || req.Outcome == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "outcome is required"})
	}

	result, err := a.disputes.ProposeResolution(c.Context(), id, middleware.GetUserID(c), req.Outcome, req.SplitPercent)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: result})
}

func (a *API) AcceptDisputeProposal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	result, err := a.disputes.AcceptProposal(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: result})
}

// AdminResolveDispute is the admin-only escape hatch once a dispute has
// escalated past the mutual-resolution window. Admin authorization itself
// is handled by middleware.AdminMiddleware ahead of this handler.
func (a *API) AdminResolveDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req adminResolveRequest
	if err := c.BodyParser(&req); err != nil || req.Outcome == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "outcome is required"})
	}

	d, err := a.disputes.AdminResolve(c.Context(), id, middleware.GetUserID(c), req.Outcome, req.Reason, req.SplitPercent)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: d})
}
