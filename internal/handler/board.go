package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

type BoardHandler struct {
	svc *service.BoardService
}

func NewBoardHandler(svc *service.BoardService) *BoardHandler {
	return &BoardHandler{svc: svc}
}

// shareToken reads and validates the :token path param. Malformed tokens
// cannot name a board, so they answer 404 like unknown ones.
func shareToken(c fiber.Ctx) (string, bool) {
	token, errMsg := middleware.ValidateShareToken(c.Params("token"))
	return token, errMsg == ""
}

// Get handles GET /api/boards/:token
func (h *BoardHandler) Get(c fiber.Ctx) error {
	token, ok := shareToken(c)
	if !ok {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Board not found")
	}

	resp, err := h.svc.Get(c.Context(), token)
	if err != nil {
		return respondError(c, err, "Failed to fetch board")
	}
	return c.JSON(resp)
}

// Vote handles POST /api/boards/:token/vote
func (h *BoardHandler) Vote(c fiber.Ctx) error {
	token, ok := shareToken(c)
	if !ok {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Board not found")
	}

	var req model.BoardVoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	itemID, errMsg := middleware.ValidateItemID(req.ItemID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.ItemID = itemID
	if req.Verdict == "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FIELDS", "itemId and verdict are required")
	}

	resp, err := h.svc.Vote(c.Context(), token, req, identity.FromHeaders(c.Get))
	if err != nil {
		metrics.ObserveVote(surfaceBoard, verdictLabel(req.Verdict), "error")
		return respondError(c, err, "Failed to record vote")
	}

	outcome := service.OutcomeAccepted
	if resp.Updated {
		outcome = service.OutcomeUpdated
	}
	metrics.ObserveVote(surfaceBoard, verdictLabel(req.Verdict), string(outcome))

	return c.JSON(resp)
}
