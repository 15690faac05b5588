package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func newCORSApp(origins string) *fiber.App {
	app := fiber.New()
	app.Use(NewCORS(origins))
	app.Get("/api/submissions", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/api/vote", func(c fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"*"}},
		{"*", []string{"*"}},
		{" , ", []string{"*"}},
		{"https://craftorcrap.cc", []string{"https://craftorcrap.cc"}},
		{"https://craftorcrap.cc/, chrome-extension://abcdef", []string{"https://craftorcrap.cc", "chrome-extension://abcdef"}},
		{"https://a.cc,https://a.cc", []string{"https://a.cc"}},
		{"https://a.cc,*", []string{"*"}},
	}
	for _, tt := range tests {
		if got := parseOrigins(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseOrigins(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	app := newCORSApp("https://craftorcrap.cc,chrome-extension://abcdef")

	req := httptest.NewRequest(http.MethodOptions, "/api/vote", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":  "chrome-extension://abcdef",
		"Access-Control-Allow-Methods": "GET, HEAD, POST",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
		"Access-Control-Max-Age":       "7200",
	}
	for h, v := range want {
		if got := resp.Header.Get(h); got != v {
			t.Errorf("%s = %q, want %q", h, got, v)
		}
	}
}

func TestCORS_ExposesRateLimitHeaders(t *testing.T) {
	app := newCORSApp("https://craftorcrap.cc")

	req := httptest.NewRequest(http.MethodGet, "/api/submissions", nil)
	req.Header.Set("Origin", "https://craftorcrap.cc")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	exposed := resp.Header.Get("Access-Control-Expose-Headers")
	for _, h := range []string{"X-RateLimit-Remaining", "Retry-After"} {
		if !strings.Contains(exposed, h) {
			t.Errorf("Access-Control-Expose-Headers %q is missing %s", exposed, h)
		}
	}
}

func TestCORS_UnknownOriginNotAllowed(t *testing.T) {
	app := newCORSApp("https://craftorcrap.cc")

	req := httptest.NewRequest(http.MethodGet, "/api/submissions", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}
