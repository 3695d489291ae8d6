package httpapi

import (
	"github.com/sponsorlink/dealcore/internal/creative"
	"github.com/sponsorlink/dealcore/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (a *API) SubmitCreative(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req submitCreativeRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "text is required"})
	}

	created, err := a.creatives.Submit(c.Context(), id, middleware.GetUserID(c), creative.SubmitPayload{
		Text:      req.Text,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(DataResponse{Data: created})
}

func (a *API) ApproveCreative(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	deal, err := a.creatives.Approve(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: deal})
}

func (a *API) RequestCreativeRevision(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req requestRevisionRequest
	_ = c.BodyParser(&req)

	deal, err := a.creatives.RequestRevision(c.Context(), id, middleware.GetUserID(c), req.Notes)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: deal})
}

func (a *API) SubmitPostProof(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	var req postProofRequest
	if err := c.BodyParser(&req); err != nil || req.PostURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "post_url is required"})
	}

	deal, err := a.creatives.SubmitPostProof(c.Context(), id, middleware.GetUserID(c), req.PostURL)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: deal})
}

func (a *API) GetCreatives(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "invalid deal id"})
	}
	list, err := a.creatives.GetForDisplay(c.Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: list})
}
