package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

type CategoryHandler struct {
	svc *service.CategoryService
}

func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// Assign handles POST /api/category
func (h *CategoryHandler) Assign(c fiber.Ctx) error {
	var req model.CategoryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	id, errMsg := middleware.ValidateSubmissionID(req.SubmissionID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	category, errMsg := middleware.ValidateCategory(req.Category)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_CATEGORY", errMsg)
	}

	if err := h.svc.Assign(c.Context(), id, category); err != nil {
		return respondError(c, err, "Failed to set category")
	}

	return c.JSON(fiber.Map{"success": true, "submission_id": id, "category": category})
}
