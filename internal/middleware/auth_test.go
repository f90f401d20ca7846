package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateAndParseToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	candidateID := uuid.New()

	token, err := jwtAuth.GenerateAccessToken(candidateID, "test@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	parsed, err := jwtAuth.ParseToken(token)
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if parsed != candidateID {
		t.Errorf("Expected candidate ID %s, got %s", candidateID, parsed)
	}
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	candidateID := uuid.New()
	token, err := NewJWTAuth("secret-a").GenerateAccessToken(candidateID, "t@t.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := NewJWTAuth("secret-b").ParseToken(token); err == nil {
		t.Error("Expected error for token signed with a different secret")
	}
}

func TestMiddleware_AttachesCandidateID(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	candidateID := uuid.New()
	token, _ := jwtAuth.GenerateAccessToken(candidateID, "t@t.com")

	var got uuid.UUID
	handler := jwtAuth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetCandidateID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/interviews", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if got != candidateID {
		t.Errorf("Expected candidate ID %s in context, got %s", candidateID, got)
	}
}

func TestMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	handler := jwtAuth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/interviews", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rr.Code)
			}
		})
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after limit, got %d", rr.Code)
	}

	// A different IP is unaffected.
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Errorf("Expected 200 for a fresh IP, got %d", rr2.Code)
	}
}
