package interview

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"intervia-backend/internal/metrics"
	"intervia-backend/internal/models"
)

// RequestFirstQuestion asks Pool[0] (the introduction). A repeated request on
// a session that already has a transcript returns the existing first record
// and never re-asks.
func (e *Engine) RequestFirstQuestion(ctx context.Context, sessionID, candidateID uuid.UUID) (*models.CandidateQuestion, error) {
	s, err := e.ownedSession(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.StatusInProgress {
		return nil, ErrNotInProgress
	}

	a := e.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()

	transcript, err := e.store.Transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(transcript) > 0 {
		// Publish on the repeat path too, so a device whose request raced
		// the original ask still receives the record it asked for.
		view := transcript[0].CandidateView()
		e.bus.Publish(sessionID, models.WSMessage{
			Type:    models.EventFirstQuestion,
			Payload: models.FirstQuestionEvent{Question: view},
		})
		return &view, nil
	}

	pool, err := e.store.Pool(ctx, sessionID)
	if err != nil {
		return nil, ErrPoolNotFound
	}
	intro := pool.At(0)
	if intro == nil {
		return nil, ErrPoolNotFound
	}

	rec := newRecordFromPool(sessionID, 0, 0, intro)
	intro.IsAsked = true

	if err := e.store.AppendRecord(ctx, rec); err != nil {
		return nil, err
	}
	if err := e.store.SavePool(ctx, pool); err != nil {
		return nil, err
	}

	view := rec.CandidateView()
	e.bus.Publish(sessionID, models.WSMessage{
		Type:    models.EventFirstQuestion,
		Payload: models.FirstQuestionEvent{Question: view},
	})
	return &view, nil
}

type SubmitInput struct {
	SessionID   uuid.UUID
	CandidateID uuid.UUID
	QuestionID  uuid.UUID
	Answer      string
	Proctoring  *models.ProctoringPatch
}

type SubmitResult struct {
	WarningIssued  bool
	WarningCount   int
	IsTerminated   bool
	CanContinue    bool
	Sentiment      models.Sentiment
	IsComplete     bool
	Reason         models.CompletionReason
	NextQuestion   *models.CandidateQuestion
	QuestionNumber int
}

// SubmitAnswer runs the submission pipeline for exactly one questionId:
// validate, classify, persist, apply the warning policy, mark the pool entry,
// hand critique generation to the queue, sequence the next question, respond.
// A second submission while one is in flight for the same session is
// rejected, not queued.
func (e *Engine) SubmitAnswer(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	a := e.actorFor(in.SessionID)

	// Validation phase: reject before any write.
	a.mu.Lock()
	if a.submitting {
		a.mu.Unlock()
		return nil, ErrDuplicateSubmission
	}
	s, err := e.ownedSession(ctx, in.SessionID, in.CandidateID)
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if s.IsTerminated {
		a.mu.Unlock()
		return nil, ErrSessionTerminated
	}
	if s.Status != models.StatusInProgress {
		a.mu.Unlock()
		return nil, ErrNotInProgress
	}
	transcript, err := e.store.Transcript(ctx, in.SessionID)
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if len(transcript) == 0 {
		a.mu.Unlock()
		return nil, ErrQuestionNotFound
	}
	pending := transcript[len(transcript)-1]
	if pending.ID != in.QuestionID {
		a.mu.Unlock()
		return nil, ErrQuestionNotFound
	}
	if pending.IsAnswered {
		a.mu.Unlock()
		return nil, ErrDuplicateSubmission
	}
	a.submitting = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.submitting = false
		a.mu.Unlock()
	}()

	e.bus.Publish(in.SessionID, models.WSMessage{
		Type:    models.EventAnswerAnalyzing,
		Payload: models.AnswerAnalyzingEvent{QuestionID: in.QuestionID},
	})

	// Out-of-process classification happens outside the actor lock so it
	// never stalls timer ticks or proctoring updates.
	sentiment := e.ai.ClassifySentiment(ctx, in.Answer)

	a.mu.Lock()
	defer a.mu.Unlock()

	// The session may have expired or been cancelled while classifying.
	s, err = e.store.Session(ctx, in.SessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if s.Status != models.StatusInProgress {
		return nil, ErrNotInProgress
	}

	now := time.Now()
	answer := in.Answer
	spent := int(now.Sub(pending.CreatedAt).Seconds())
	pending.Answer = &answer
	pending.IsAnswered = true
	pending.AnsweredAt = &now
	pending.TimeSpentSeconds = &spent
	pending.Sentiment = &sentiment
	pending.SentimentAnalyzedAt = &now

	outcome := applyWarningPolicy(s, sentiment, now)

	if in.Proctoring != nil {
		mergeProctoring(&s.Proctoring, *in.Proctoring, now)
	}

	pool, err := e.store.Pool(ctx, in.SessionID)
	if err != nil {
		return nil, ErrPoolNotFound
	}
	if pending.Type == models.QuestionTypePool && pending.PoolIndex != nil {
		if entry := pool.At(*pending.PoolIndex); entry != nil {
			entry.IsCompleted = true
		}
	}

	result := &SubmitResult{
		WarningIssued: outcome.warningIssued,
		WarningCount:  outcome.warningCount,
		IsTerminated:  outcome.terminated,
		Sentiment:     sentiment,
	}

	var next *models.QuestionRecord
	if outcome.terminated {
		e.finalizeLocked(a, s, models.StatusCompleted, models.ReasonTerminated)
		metrics.ActiveSessions.Dec()
		result.IsComplete = true
		result.Reason = models.ReasonTerminated
	} else {
		dec := nextDecision(transcript, pool, e.cfg.MaxQuestions)
		switch dec.kind {
		case nextFollowUp:
			text := e.ai.FollowUpQuestion(ctx, pending.Text, in.Answer, sentiment)
			next = newFollowUpRecord(in.SessionID, len(transcript), text, pending)
		case nextPool:
			entry := pool.At(dec.poolIndex)
			text := e.ai.PersonalizeQuestion(ctx, *entry, in.Answer, outcome.warningIssued)
			next = newRecordFromPool(in.SessionID, len(transcript), dec.poolIndex, entry)
			next.Text = text
			entry.IsAsked = true
		case nextComplete:
			e.finalizeLocked(a, s, models.StatusCompleted, dec.reason)
			metrics.ActiveSessions.Dec()
			result.IsComplete = true
			result.Reason = dec.reason
		}
	}
	result.CanContinue = !result.IsComplete

	if err := e.store.PersistSubmission(ctx, s, pending, pool, next); err != nil {
		return nil, err
	}

	metrics.AnswersSubmitted.Inc()
	if outcome.warningIssued {
		metrics.WarningsIssued.Inc()
	}

	// Critique generation never gates the response; a failed enqueue only
	// costs this answer its critique.
	job := models.CritiqueJob{
		SessionID:  in.SessionID,
		QuestionID: pending.ID,
		Question:   pending.Text,
		Answer:     in.Answer,
		Proctoring: s.Proctoring,
	}
	if err := e.queue.EnqueueCritique(ctx, job); err != nil {
		log.Printf("Session %s: critique enqueue failed for question %s: %v", in.SessionID, pending.ID, err)
	}

	e.bus.Publish(in.SessionID, models.WSMessage{
		Type: models.EventAnswerSubmitted,
		Payload: models.AnswerSubmittedEvent{
			QuestionID:    pending.ID,
			WarningIssued: result.WarningIssued,
			WarningCount:  result.WarningCount,
			IsTerminated:  result.IsTerminated,
			CanContinue:   result.CanContinue,
			Sentiment:     sentiment,
		},
	})
	if result.WarningIssued && !result.IsTerminated {
		e.bus.Publish(in.SessionID, models.WSMessage{
			Type: models.EventWarningIssued,
			Payload: models.WarningIssuedEvent{
				WarningCount: result.WarningCount,
				Message:      "Please keep your responses professional. A further violation ends the interview.",
			},
		})
	}

	if result.IsComplete {
		e.bus.Publish(in.SessionID, models.WSMessage{
			Type:    models.EventInterviewComplete,
			Payload: models.InterviewCompleteEvent{Reason: result.Reason},
		})
		return result, nil
	}

	view := next.CandidateView()
	result.NextQuestion = &view
	result.QuestionNumber = next.Position + 1
	e.bus.Publish(in.SessionID, models.WSMessage{
		Type: models.EventNextQuestion,
		Payload: models.NextQuestionEvent{
			Question:       &view,
			QuestionNumber: result.QuestionNumber,
			IsComplete:     false,
		},
	})
	return result, nil
}

func newRecordFromPool(sessionID uuid.UUID, position, poolIndex int, entry *models.PoolQuestion) *models.QuestionRecord {
	idx := poolIndex
	return &models.QuestionRecord{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Position:   position,
		Text:       entry.Text,
		Category:   entry.Category,
		Difficulty: entry.Difficulty,
		Type:       models.QuestionTypePool,
		PoolIndex:  &idx,
		// Hidden from the candidate channel; only the hint action may
		// disclose it.
		ExpectedAnswer: entry.ExpectedAnswer,
		CreatedAt:      time.Now(),
	}
}

func newFollowUpRecord(sessionID uuid.UUID, position int, text string, prev *models.QuestionRecord) *models.QuestionRecord {
	return &models.QuestionRecord{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Position:   position,
		Text:       text,
		Category:   prev.Category,
		Difficulty: prev.Difficulty,
		Type:       models.QuestionTypeFollowUp,
		CreatedAt:  time.Now(),
	}
}

func mergeProctoring(p *models.Proctoring, patch models.ProctoringPatch, now time.Time) {
	at := now
	if patch.ObservedAt != nil {
		at = *patch.ObservedAt
	}
	if patch.TabSwitches > 0 {
		p.TabSwitches += patch.TabSwitches
		p.LastTabSwitchAt = &at
	}
	if patch.CopyPasteCount > 0 {
		p.CopyPasteCount += patch.CopyPasteCount
		p.LastCopyPasteAt = &at
	}
	if patch.FaceNotDetected > 0 {
		p.FaceNotDetected += patch.FaceNotDetected
		p.LastFaceViolationAt = &at
	}
	if patch.PhoneDetected > 0 {
		p.PhoneDetected += patch.PhoneDetected
		p.LastPhoneViolationAt = &at
	}
	if patch.MultiplePersons > 0 {
		p.MultiplePersons += patch.MultiplePersons
		p.LastMultiPersonAt = &at
	}
}
