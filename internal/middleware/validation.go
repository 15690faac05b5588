package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

// Field length limits.
const (
	MaxURLLen        = 2048
	MaxTitleLen      = 200
	MinShareTokenLen = 8
	MaxShareTokenLen = 64
	MaxCategoryLen   = 20
)

// shareTokenRe matches board share tokens: URL-safe base64 alphabet.
var shareTokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

func validateUUID(field, id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", field + " must be a UUID"
	}
	return parsed.String(), ""
}

// ValidateSubmissionID checks that a submission id is a well-formed UUID and
// returns it in canonical form.
func ValidateSubmissionID(id string) (string, string) {
	return validateUUID("submission_id", id)
}

// ValidateItemID checks that a board item id is a well-formed UUID.
func ValidateItemID(id string) (string, string) {
	return validateUUID("itemId", id)
}

// ValidateShareToken checks the board share token format.
func ValidateShareToken(token string) (string, string) {
	token = strings.TrimSpace(token)
	if len(token) < MinShareTokenLen || len(token) > MaxShareTokenLen {
		return "", "share token must be 8-64 characters"
	}
	if !shareTokenRe.MatchString(token) {
		return "", "share token contains invalid characters"
	}
	return token, ""
}

// ValidateCategory lowercases the category and checks it against the fixed set.
func ValidateCategory(category string) (string, string) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return "", "category is required"
	}
	if len(category) > MaxCategoryLen || !repository.ValidCategories[category] {
		return "", "category must be one of: " + repository.CategoryNames
	}
	return category, ""
}

// ValidateURL checks that a submitted URL is absolute http(s) and within limits.
func ValidateURL(field, raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", field + " is required"
	}
	if len(raw) > MaxURLLen {
		return "", field + " must be at most 2048 characters"
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", field + " must be an absolute http(s) URL"
	}
	return raw, ""
}

// ValidateTitle trims and truncates a title to at most MaxTitleLen bytes,
// cutting on a rune boundary.
func ValidateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) <= MaxTitleLen {
		return title
	}
	n := MaxTitleLen
	for n > 0 && !utf8.RuneStart(title[n]) {
		n--
	}
	return title[:n]
}
