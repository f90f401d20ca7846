package interview

import (
	"context"
	"time"

	"github.com/google/uuid"

	"intervia-backend/internal/metrics"
	"intervia-backend/internal/models"
)

// Resume reconstructs the candidate-visible state of an in-flight session for
// a fresh device. When sessionID is uuid.Nil the candidate's single active
// session is looked up instead. Hidden fields (expected answers, critiques)
// never appear in the result.
func (e *Engine) Resume(ctx context.Context, candidateID uuid.UUID, sessionID uuid.UUID) (*models.ReconnectedEvent, error) {
	var s *models.Session
	var err error
	if sessionID == uuid.Nil {
		s, err = e.store.ActiveSessionByCandidate(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, ErrSessionNotFound
		}
	} else {
		s, err = e.ownedSession(ctx, sessionID, candidateID)
		if err != nil {
			return nil, err
		}
	}

	a := e.actorFor(s.ID)
	a.mu.Lock()
	defer a.mu.Unlock()

	// Reload under the actor lock; a tick or submission may have finalized
	// the session between lookup and lock acquisition.
	s, err = e.store.Session(ctx, s.ID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	remaining := s.TimeRemainingSeconds
	if s.Status == models.StatusInProgress && s.StartedAt != nil {
		remaining = s.TotalDurationSeconds - int(time.Since(*s.StartedAt).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		if remaining == 0 {
			// The clock ran out while nobody was connected; finalize now
			// rather than handing back a dead session.
			s.TimeRemainingSeconds = 0
			e.finalizeLocked(a, s, models.StatusCompleted, models.ReasonTimeExpired)
			metrics.ActiveSessions.Dec()
			if err := e.store.SaveSession(ctx, s); err != nil {
				return nil, err
			}
		}
	}

	transcript, err := e.store.Transcript(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	history := make([]models.ChatEntry, 0, len(transcript)*2)
	var current *models.CandidateQuestion
	for _, rec := range transcript {
		history = append(history, models.ChatEntry{
			Role:       "interviewer",
			Content:    rec.Text,
			QuestionID: rec.ID,
		})
		if rec.IsAnswered && rec.Answer != nil {
			history = append(history, models.ChatEntry{
				Role:       "candidate",
				Content:    *rec.Answer,
				QuestionID: rec.ID,
			})
		}
	}
	if len(transcript) > 0 {
		last := transcript[len(transcript)-1]
		if !last.IsAnswered && s.Status == models.StatusInProgress {
			view := last.CandidateView()
			current = &view
		}
	}

	return &models.ReconnectedEvent{
		SessionID:       s.ID,
		CurrentQuestion: current,
		ChatHistory:     history,
		TimeRemaining:   remaining,
		WarningCount:    s.WarningCount,
		Proctoring:      s.Proctoring,
	}, nil
}

// RevealHint discloses the expected answer for the currently open question
// only. Earlier questions stay sealed, so a candidate cannot retroactively
// check answers to what they already submitted.
func (e *Engine) RevealHint(ctx context.Context, sessionID, questionID, candidateID uuid.UUID) (*models.HintRevealedEvent, error) {
	if _, err := e.ownedSession(ctx, sessionID, candidateID); err != nil {
		return nil, err
	}

	a := e.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()

	transcript, err := e.store.Transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var rec *models.QuestionRecord
	for _, r := range transcript {
		if r.ID == questionID {
			rec = r
			break
		}
	}
	if rec == nil {
		return nil, ErrQuestionNotFound
	}
	if rec.ID != transcript[len(transcript)-1].ID {
		return nil, ErrHintNotAllowed
	}

	now := time.Now()
	rec.AnswerViewed = true
	rec.AnswerViewedAt = &now
	if err := e.store.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}

	return &models.HintRevealedEvent{
		QuestionID:     rec.ID,
		ExpectedAnswer: rec.ExpectedAnswer,
	}, nil
}

// UpdateProctoring merges client-reported counters. It never consults the
// conduct policy and never blocks the question flow.
func (e *Engine) UpdateProctoring(ctx context.Context, sessionID, candidateID uuid.UUID, patch models.ProctoringPatch) error {
	a := e.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := e.ownedSession(ctx, sessionID, candidateID)
	if err != nil {
		return err
	}

	mergeProctoring(&s.Proctoring, patch, time.Now())
	return e.store.SaveSession(ctx, s)
}
