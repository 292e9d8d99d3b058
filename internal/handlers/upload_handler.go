package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
	"vantagebuild/proposal-engine/internal/repositories"
	"vantagebuild/proposal-engine/internal/services"
)

type UploadHandler struct {
	docRepo      repositories.DocumentRepository
	proposalRepo repositories.ProposalRepository
	store        services.AttachmentStore
	worker       services.ExtractionWorker
	maxFileSize  int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	proposalRepo repositories.ProposalRepository,
	store services.AttachmentStore,
	worker services.ExtractionWorker,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:      docRepo,
		proposalRepo: proposalRepo,
		store:        store,
		worker:       worker,
		maxFileSize:  maxFileSize,
	}
}

// HandleUpload handles POST /api/v1/proposals/:id/documents
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	idParam := c.Params("id")
	proposalID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid proposal ID format",
		})
	}

	if _, err := h.proposalRepo.FindByID(proposalID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proposal not found",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	files, exists := form.File["document"]
	if !exists || len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded. Please upload 'document' as a PDF file.",
		})
	}

	var responses []models.UploadResponse
	for _, file := range files {
		if file.Size > h.maxFileSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize),
			})
		}

		filename, filePath, err := h.store.SaveFile(file, proposalID.String())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("failed to save file: %v", err),
			})
		}

		doc := models.ProposalDocument{
			ID:               uuid.New(),
			ProposalID:       proposalID,
			Filename:         filename,
			OriginalFileName: file.Filename,
			FileType:         "proposal_attachment",
			FilePath:         filePath,
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}

		if err := h.docRepo.Create(&doc); err != nil {
			// Cleanup uploaded file if database insert fails
			h.store.DeleteFile(filename)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to save document record",
			})
		}

		responses = append(responses, models.UploadResponse{
			ID:           doc.ID.String(),
			ProposalID:   proposalID.String(),
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
			FileType:     doc.FileType,
		})
	}

	h.worker.EnqueueProposal(proposalID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Documents uploaded successfully",
		"documents": responses,
	})
}
