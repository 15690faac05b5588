package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

type SubmissionHandler struct {
	svc      *service.SubmissionService
	resolver *identity.Resolver
}

func NewSubmissionHandler(svc *service.SubmissionService, resolver *identity.Resolver) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, resolver: resolver}
}

// Submit handles POST /api/submissions
// A known URL answers 200 with the existing submission, a new one 201.
func (h *SubmissionHandler) Submit(c fiber.Ctx) error {
	var req model.SubmissionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if _, errMsg := middleware.ValidateURL("url", req.URL); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	if req.ThumbnailURL != "" {
		if _, errMsg := middleware.ValidateURL("thumbnailUrl", req.ThumbnailURL); errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
		}
	}
	req.Title = middleware.ValidateTitle(req.Title)

	userID, err := h.resolver.User(c.Context(), identity.FromHeaders(c.Get))
	if err != nil {
		return respondError(c, err, "Failed to submit")
	}

	resp, created, err := h.svc.Submit(c.Context(), req, userID)
	if err != nil {
		return respondError(c, err, "Failed to submit")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(resp)
}

// Feed handles GET /api/submissions
func (h *SubmissionHandler) Feed(c fiber.Ctx) error {
	q := model.FeedQuery{
		Sort:     fiber.Query[string](c, "sort", model.SortNew),
		Category: c.Query("category"),
		Limit:    fiber.Query[int](c, "limit", service.DefaultFeedLimit),
		Offset:   fiber.Query[int](c, "offset", 0),
	}
	if q.Sort != model.SortNew && q.Sort != model.SortTop {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "sort must be new or top")
	}
	if q.Category != "" {
		category, errMsg := middleware.ValidateCategory(q.Category)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_CATEGORY", errMsg)
		}
		q.Category = category
	}

	resp, err := h.svc.Feed(c.Context(), q)
	if err != nil {
		return respondError(c, err, "Failed to fetch feed")
	}
	return c.JSON(resp)
}

// Get handles GET /api/submissions/:id
func (h *SubmissionHandler) Get(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateSubmissionID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to fetch submission")
	}
	return c.JSON(resp)
}

// Ratings handles GET /api/extension/ratings?url=
func (h *SubmissionHandler) Ratings(c fiber.Ctx) error {
	if _, err := h.resolver.ForExtension(c.Context(), identity.FromHeaders(c.Get)); err != nil {
		return respondError(c, err, "Failed to authenticate")
	}

	raw, errMsg := middleware.ValidateURL("url", c.Query("url"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Ratings(c.Context(), raw)
	if err != nil {
		return respondError(c, err, "Failed to fetch ratings")
	}
	return c.JSON(resp)
}
