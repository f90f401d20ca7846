package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"intervia-backend/internal/interview"
	"intervia-backend/internal/middleware"
	"intervia-backend/internal/models"
	"intervia-backend/internal/repository"
	"intervia-backend/internal/services"
)

type InterviewHandler struct {
	sessionRepo *repository.SessionRepo
	ai          *services.AIService
	engine      *interview.Engine
}

func NewInterviewHandler(sessionRepo *repository.SessionRepo, ai *services.AIService, engine *interview.Engine) *InterviewHandler {
	return &InterviewHandler{sessionRepo: sessionRepo, ai: ai, engine: engine}
}

// Create schedules a new interview and authors its question pool up front.
// The pool exists before the session can start; the sequencer only ever
// consumes it.
func (h *InterviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "role is required", r))
		return
	}
	if req.PoolSize <= 0 {
		req.PoolSize = 9
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}

	candidateID := middleware.GetCandidateID(r.Context())

	session := &models.Session{
		CandidateID: candidateID,
		Role:        req.Role,
	}
	if err := h.sessionRepo.Create(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	pool := &models.QuestionPool{
		SessionID: session.ID,
		Questions: h.ai.GeneratePool(r.Context(), req.Profile, req.Role, req.Difficulty, req.PoolSize),
	}
	if err := h.sessionRepo.CreatePool(r.Context(), pool); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create question pool", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":   session,
		"pool_size": len(pool.Questions),
	})
}

func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, err := h.engine.Start(r.Context(), id, middleware.GetCandidateID(r.Context()))
	if err != nil {
		handleInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	if err := h.engine.Cancel(r.Context(), id, middleware.GetCandidateID(r.Context())); err != nil {
		handleInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, err := h.sessionRepo.Session(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}
	if session.CandidateID != middleware.GetCandidateID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("ACCESS_DENIED", "Access denied", r))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionRepo.ListByCandidate(r.Context(), middleware.GetCandidateID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch sessions", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// Active is the REST form of cross-device resume: it finds the candidate's
// single in_progress session and returns the candidate-safe reconstruction.
func (h *InterviewHandler) Active(w http.ResponseWriter, r *http.Request) {
	resumed, err := h.engine.Resume(r.Context(), middleware.GetCandidateID(r.Context()), uuid.Nil)
	if err != nil {
		handleInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resumed)
}

func (h *InterviewHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	resumed, err := h.engine.Resume(r.Context(), middleware.GetCandidateID(r.Context()), id)
	if err != nil {
		handleInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resumed)
}

// Report returns the full transcript, expected answers and critiques
// included. Only available once the session is terminal; hidden fields stay
// hidden while the interview is live.
func (h *InterviewHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, err := h.sessionRepo.Session(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}
	if session.CandidateID != middleware.GetCandidateID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("ACCESS_DENIED", "Access denied", r))
		return
	}
	switch session.Status {
	case models.StatusCompleted, models.StatusCancelled:
	default:
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATE", "Report is only available after the interview ends", r))
		return
	}

	transcript, err := h.sessionRepo.Transcript(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch transcript", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":    session,
		"transcript": transcript,
	})
}

func (h *InterviewHandler) TimeRemaining(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	update, err := h.engine.TimeRemaining(r.Context(), id, middleware.GetCandidateID(r.Context()))
	if err != nil {
		handleInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func handleInterviewError(w http.ResponseWriter, r *http.Request, err error) {
	var ierr *interview.Error
	if !errors.As(err, &ierr) {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	status := http.StatusInternalServerError
	switch ierr.Code {
	case "NOT_FOUND", "QUESTION_NOT_FOUND":
		status = http.StatusNotFound
	case "ACCESS_DENIED":
		status = http.StatusForbidden
	case "INVALID_STATE", "DUPLICATE_SUBMISSION", "ACTIVE_SESSION_EXISTS":
		status = http.StatusConflict
	case "UPSTREAM_UNAVAILABLE":
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResp(ierr.Code, ierr.Message, r))
}
