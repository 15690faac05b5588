package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// Browsers cap preflight caching at two hours.
const corsMaxAge = 2 * 60 * 60

// NewCORS returns the CORS middleware shared by the web app and the browser
// extension. corsOrigins is a comma-separated allow list such as
// "https://craftorcrap.cc,chrome-extension://abcdef"; empty or "*" allows any
// origin.
func NewCORS(corsOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: parseOrigins(corsOrigins),
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodHead,
			fiber.MethodPost,
		},
		AllowHeaders: []string{
			fiber.HeaderContentType,
			fiber.HeaderAuthorization,
		},
		ExposeHeaders: []string{
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			fiber.HeaderRetryAfter,
		},
		MaxAge: corsMaxAge,
	})
}

// parseOrigins splits the allow list, dropping blanks and trailing slashes.
// A "*" anywhere in the list wins.
func parseOrigins(corsOrigins string) []string {
	var origins []string
	seen := make(map[string]bool)
	for _, o := range strings.Split(corsOrigins, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return []string{"*"}
		}
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
