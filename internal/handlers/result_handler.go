package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
	"vantagebuild/proposal-engine/internal/repositories"
)

type ResultHandler struct {
	evalRepo repositories.EvaluationRepository
}

func NewResultHandler(evalRepo repositories.EvaluationRepository) *ResultHandler {
	return &ResultHandler{evalRepo: evalRepo}
}

// HandleGetResult handles GET /api/v1/proposals/:id/result
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	idParam := c.Params("id")
	proposalID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid proposal ID format",
		})
	}

	evaluation, err := h.evalRepo.FindByProposal(proposalID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No evaluation found for this proposal",
		})
	}

	response := models.ResultResponse{
		ProposalID: proposalID.String(),
		Status:     string(evaluation.Status),
	}
	if evaluation.Status == models.StatusCompleted {
		response.Result = evaluation
	}

	return c.JSON(response)
}
