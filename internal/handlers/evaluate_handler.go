package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
	"vantagebuild/proposal-engine/internal/services"
)

type EvaluateHandler struct {
	evaluator services.EvaluationService
}

func NewEvaluateHandler(evaluator services.EvaluationService) *EvaluateHandler {
	return &EvaluateHandler{evaluator: evaluator}
}

// HandleEvaluate handles POST /api/v1/evaluate
func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.ProjectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project_id is required",
		})
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project_id format",
		})
	}

	proposalIDs := make([]uuid.UUID, 0, len(req.ProposalIDs))
	for _, raw := range req.ProposalIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid proposal id format: " + raw,
			})
		}
		proposalIDs = append(proposalIDs, id)
	}

	result, err := h.evaluator.Evaluate(c.UserContext(), services.EvaluateInput{
		ProjectID:      projectID,
		ProposalIDs:    proposalIDs,
		PriceBenchmark: req.PriceBenchmark,
		Force:          req.Force,
	})
	if err != nil {
		return writeEngineError(c, err)
	}

	return c.JSON(result)
}

// writeEngineError maps a classified engine error onto the HTTP envelope.
func writeEngineError(c *fiber.Ctx, err error) error {
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) {
		engineErr = services.Classify(err)
	}

	status := fiber.StatusInternalServerError
	switch engineErr.Code {
	case services.CodeNotFound:
		status = fiber.StatusNotFound
	case services.CodeNoEligibleProposals, services.CodeIncomparableSet:
		status = fiber.StatusUnprocessableEntity
	case services.CodeTimeout:
		status = fiber.StatusGatewayTimeout
	case services.CodeProviderApiError, services.CodeInvalidJson, services.CodeValidationError:
		status = fiber.StatusBadGateway
	}

	resp := models.ErrorResponse{
		Success: false,
		Error:   engineErr.Message,
		Code:    string(engineErr.Code),
	}
	if engineErr.RetryAfter > 0 {
		seconds := int(engineErr.RetryAfter.Seconds())
		resp.RetryAfterSec = &seconds
	}

	return c.Status(status).JSON(resp)
}
