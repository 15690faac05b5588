package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

// Vote surfaces, used as the metrics label.
const (
	surfaceFeed      = "feed"
	surfaceExtension = "extension"
	surfaceBoard     = "board"
)

// verdictLabel bounds the verdict label to known values.
func verdictLabel(raw string) string {
	if v, ok := model.ParseVerdict(raw); ok {
		return string(v)
	}
	return "invalid"
}

type VoteHandler struct {
	svc *service.VoteService
}

func NewVoteHandler(svc *service.VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Public handles POST /api/vote
func (h *VoteHandler) Public(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	id, errMsg := middleware.ValidateSubmissionID(req.SubmissionID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.SubmissionID = id
	if req.Verdict == "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FIELDS", "submission_id and verdict are required")
	}

	res, err := h.svc.CastFeed(c.Context(), req, identity.FromHeaders(c.Get))
	if err != nil {
		metrics.ObserveVote(surfaceFeed, verdictLabel(req.Verdict), "error")
		return respondError(c, err, "Failed to record vote")
	}
	metrics.ObserveVote(surfaceFeed, verdictLabel(req.Verdict), string(res.Outcome))

	switch res.Outcome {
	case service.OutcomeDuplicate:
		return respondRejected(c, fiber.StatusConflict, "ALREADY_VOTED", "You have already voted on this submission", res.Totals)
	case service.OutcomeRateLimited:
		return respondRejected(c, fiber.StatusTooManyRequests, "TOO_MANY_VOTES", "Too many votes from this IP address", res.Totals)
	}
	return c.JSON(model.NewVoteResponse(res.Totals))
}

// Extension handles POST /api/extension/vote
// A repeat vote is not an error on this surface: it answers 200 with
// already_voted set.
func (h *VoteHandler) Extension(c fiber.Ctx) error {
	if identity.BearerToken(c.Get(fiber.HeaderAuthorization)) == "" {
		return respondError(c, identity.ErrAuthRequired, "")
	}

	var req model.ExtensionVoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if _, errMsg := middleware.ValidateURL("url", req.URL); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	if req.ImageURL != "" {
		if _, errMsg := middleware.ValidateURL("imageUrl", req.ImageURL); errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
		}
	}

	id, res, err := h.svc.CastExtension(c.Context(), req, identity.FromHeaders(c.Get))
	if err != nil {
		metrics.ObserveVote(surfaceExtension, verdictLabel(req.Verdict), "error")
		return respondError(c, err, "Failed to record vote")
	}
	metrics.ObserveVote(surfaceExtension, verdictLabel(req.Verdict), string(res.Outcome))

	if res.Outcome == service.OutcomeRateLimited {
		return respondRejected(c, fiber.StatusTooManyRequests, "TOO_MANY_VOTES", "Too many votes from this IP address", res.Totals)
	}

	return c.JSON(model.ExtensionVoteResponse{
		SubmissionID:    id,
		TotalCraft:      res.Totals.Craft,
		TotalCrap:       res.Totals.Crap,
		CraftPercentage: res.Totals.Percentage(),
		AlreadyVoted:    res.Outcome == service.OutcomeDuplicate,
	})
}
