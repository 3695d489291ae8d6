package httpapi

import (
	"github.com/sponsorlink/dealcore/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (a *API) WaiveRequirement(c *fiber.Ctx) error {
	dealID, reqID, err := parseDealAndRequirementID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: err.Error()})
	}
	result, err := a.requirements.Waive(c.Context(), dealID, reqID, middleware.GetUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: result})
}

func (a *API) ConfirmRequirement(c *fiber.Ctx) error {
	dealID, reqID, err := parseDealAndRequirementID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: err.Error()})
	}
	result, err := a.requirements.Confirm(c.Context(), dealID, reqID, middleware.GetUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: result})
}

func parseDealAndRequirementID(c *fiber.Ctx) (dealID, reqID uuid.UUID, err error) {
	dealID, err = uuid.Parse(c.Params("id"))
	if err != nil {
		return dealID, reqID, err
	}
	reqID, err = uuid.Parse(c.Params("rid"))
	return dealID, reqID, err
}
