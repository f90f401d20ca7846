package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"intervia-backend/internal/interview"
	"intervia-backend/internal/models"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status 'ok', got %q", body["status"])
	}
}

func TestErrorResp_CarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/interviews", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp := errorResp("NOT_FOUND", "Session not found", req)

	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", resp.Error.Code)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("Expected request_id 'req-123', got %q", resp.Error.RequestID)
	}
}

func TestErrorRespWithFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	fields := map[string]string{"email": "invalid format"}

	resp := errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, req)

	if resp.Error.Fields["email"] != "invalid format" {
		t.Errorf("Expected field error preserved, got %v", resp.Error.Fields)
	}
}

func TestHandleInterviewError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"session not found", interview.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"question not found", interview.ErrQuestionNotFound, http.StatusNotFound, "QUESTION_NOT_FOUND"},
		{"access denied", interview.ErrAccessDenied, http.StatusForbidden, "ACCESS_DENIED"},
		{"hint on earlier question", interview.ErrHintNotAllowed, http.StatusForbidden, "ACCESS_DENIED"},
		{"not in progress", interview.ErrNotInProgress, http.StatusConflict, "INVALID_STATE"},
		{"duplicate submission", interview.ErrDuplicateSubmission, http.StatusConflict, "DUPLICATE_SUBMISSION"},
		{"active session exists", interview.ErrActiveSessionExists, http.StatusConflict, "ACTIVE_SESSION_EXISTS"},
		{"upstream unavailable", interview.ErrUpstreamUnavailable, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/interviews/x", nil)

			handleInterviewError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Error.Code)
			}
		})
	}
}
