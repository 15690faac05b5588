package metrics

import "testing"

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/boards/abcDEF123/vote", "/api/boards/:token/vote"},
		{"/api/boards/abcDEF123", "/api/boards/:token"},
		{"/api/submissions/6f1c0d6e-0000-4000-8000-000000000001", "/api/submissions/:id"},
		{"/api/vote", "/api/vote"},
		{"/health/ready", "/health/ready"},
	}
	for _, tt := range tests {
		if got := sanitizeEndpoint(tt.path); got != tt.want {
			t.Errorf("sanitizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	// Must not panic with unregistered collectors.
	ObserveVote("feed", "craft", "accepted")
	CacheHit()
	CacheMiss()
	ObserveScoreRecalc(0)
	AddReconciled(3)
}
