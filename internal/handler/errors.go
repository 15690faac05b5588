package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

// apiError is one row of the sentinel to HTTP mapping.
type apiError struct {
	status int
	code   string
}

var errorTable = []struct {
	err error
	apiError
}{
	{service.ErrInvalidVerdict, apiError{fiber.StatusBadRequest, "INVALID_VERDICT"}},
	{service.ErrInvalidCategory, apiError{fiber.StatusBadRequest, "INVALID_CATEGORY"}},
	{service.ErrInvalidURL, apiError{fiber.StatusBadRequest, "INVALID_URL"}},
	{service.ErrCategoryAlreadySet, apiError{fiber.StatusBadRequest, "CATEGORY_ALREADY_SET"}},
	{identity.ErrFingerprintRequired, apiError{fiber.StatusBadRequest, "FINGERPRINT_REQUIRED"}},
	{identity.ErrInvalidFingerprint, apiError{fiber.StatusBadRequest, "INVALID_FIELD"}},
	{identity.ErrVoterIdentificationRequired, apiError{fiber.StatusBadRequest, "VOTER_TOKEN_REQUIRED"}},
	{identity.ErrInvalidVoterToken, apiError{fiber.StatusBadRequest, "INVALID_FIELD"}},
	{identity.ErrAuthRequired, apiError{fiber.StatusUnauthorized, "AUTH_REQUIRED"}},
	{service.ErrBoardPrivate, apiError{fiber.StatusForbidden, "BOARD_PRIVATE"}},
	{service.ErrVotingDisabled, apiError{fiber.StatusForbidden, "VOTING_DISABLED"}},
	{service.ErrNotFound, apiError{fiber.StatusNotFound, "NOT_FOUND"}},
}

// respondError maps a service error to the API error taxonomy. Anything
// unrecognised is logged and reported as a generic 500 with fallback as
// the message.
func respondError(c fiber.Ctx, err error, fallback string) error {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return middleware.ErrorResponse(c, e.status, e.code, e.err.Error())
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

// respondRejected reports a refused vote together with the unchanged totals.
func respondRejected(c fiber.Ctx, status int, code, message string, t model.Totals) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
		"total_craft":      t.Craft,
		"total_crap":       t.Crap,
		"craft_percentage": t.Percentage(),
	})
}

// ErrorHandler is the fiber fallback for errors returned by handlers and
// middleware. fiber.Error keeps its status; everything else is a 500.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return middleware.ErrorResponse(c, fe.Code, "HTTP_ERROR", fe.Message)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}
