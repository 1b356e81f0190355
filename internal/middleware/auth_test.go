package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func echoUserHandler(userID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*userID = UserID(r)
	})
}

// TestAuthDisabled tests that an empty secret runs requests as PublicUser.
func TestAuthDisabled(t *testing.T) {
	auth := NewAuth("")
	if auth.Enabled() {
		t.Error("Expected auth disabled with empty secret")
	}

	var userID string
	handler := auth.Middleware(echoUserHandler(&userID))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if userID != PublicUser {
		t.Errorf("Expected %q, got %q", PublicUser, userID)
	}
}

// TestAuthRoundtrip tests issuing a token and validating it through the
// middleware.
func TestAuthRoundtrip(t *testing.T) {
	auth := NewAuth("test-secret")
	token, err := auth.IssueToken("player-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	var userID string
	handler := auth.Middleware(echoUserHandler(&userID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if userID != "player-1" {
		t.Errorf("Expected player-1, got %q", userID)
	}
}

// TestAuthRejections tests missing, malformed, and wrong-secret tokens.
func TestAuthRejections(t *testing.T) {
	auth := NewAuth("test-secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler reached with invalid auth")
	}))

	otherToken, err := NewAuth("other-secret").IssueToken("player-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + otherToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
		})
	}
}

// TestRateLimiter tests that bursts are capped per IP.
func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("Expected burst of 2 allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("Expected third immediate request denied")
	}
	// Other IPs have their own budget.
	if !rl.Allow("10.0.0.2") {
		t.Error("Expected fresh IP allowed")
	}
}

// TestRateLimiterMiddleware tests the HTTP wiring.
func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.3:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rec.Code)
	}
}
