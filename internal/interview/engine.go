package interview

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"intervia-backend/internal/metrics"
	"intervia-backend/internal/models"
)

// Store is the persistence boundary the engine drives. Implementations must
// give read-your-writes consistency for a single session.
type Store interface {
	Session(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// ActiveSessionByCandidate returns (nil, nil) when the candidate has no
	// in_progress session.
	ActiveSessionByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error
	Transcript(ctx context.Context, sessionID uuid.UUID) ([]*models.QuestionRecord, error)
	Record(ctx context.Context, sessionID, questionID uuid.UUID) (*models.QuestionRecord, error)
	AppendRecord(ctx context.Context, rec *models.QuestionRecord) error
	SaveRecord(ctx context.Context, rec *models.QuestionRecord) error
	Pool(ctx context.Context, sessionID uuid.UUID) (*models.QuestionPool, error)
	SavePool(ctx context.Context, pool *models.QuestionPool) error
	// PersistSubmission applies every write of one accepted answer
	// (answered record, session conduct/timing, pool flags, optional next
	// record) in a single transaction.
	PersistSubmission(ctx context.Context, s *models.Session, answered *models.QuestionRecord, pool *models.QuestionPool, next *models.QuestionRecord) error
}

// AI is the generative collaborator surface the engine consumes. Every method
// degrades internally (classification falls open to NEUTRAL, generation falls
// back to deterministic text), so none of them can fail into the engine.
type AI interface {
	ClassifySentiment(ctx context.Context, answer string) models.Sentiment
	FollowUpQuestion(ctx context.Context, prevQuestion, answer string, sentiment models.Sentiment) string
	PersonalizeQuestion(ctx context.Context, question models.PoolQuestion, lastAnswer string, warn bool) string
}

// Queue hands critique generation off the response path.
type Queue interface {
	EnqueueCritique(ctx context.Context, job models.CritiqueJob) error
}

// Broadcaster fans an event out to every connection joined to a session.
type Broadcaster interface {
	Publish(sessionID uuid.UUID, msg models.WSMessage)
}

type Config struct {
	TotalDuration time.Duration
	MaxQuestions  int
	TickInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TotalDuration: 45 * time.Minute,
		MaxQuestions:  18,
		TickInterval:  time.Second,
	}
}

// Engine owns every live interview session. Each session gets its own actor
// entry carrying a mutex, a connection count, an in-flight submission guard
// and the timer handle, so sessions serialize internally but never against
// each other.
type Engine struct {
	store Store
	ai    AI
	queue Queue
	bus   Broadcaster
	cfg   Config

	mu     sync.Mutex
	actors map[uuid.UUID]*actor
}

type actor struct {
	mu         sync.Mutex
	conns      int
	submitting bool
	timer      *sessionTimer
}

func NewEngine(store Store, ai AI, queue Queue, bus Broadcaster, cfg Config) *Engine {
	if cfg.TotalDuration <= 0 {
		cfg.TotalDuration = DefaultConfig().TotalDuration
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultConfig().MaxQuestions
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Engine{
		store:  store,
		ai:     ai,
		queue:  queue,
		bus:    bus,
		cfg:    cfg,
		actors: make(map[uuid.UUID]*actor),
	}
}

func (e *Engine) actorFor(sessionID uuid.UUID) *actor {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.actors[sessionID]
	if !ok {
		a = &actor{}
		e.actors[sessionID] = a
	}
	return a
}

// ownedSession loads a session and enforces candidate ownership.
func (e *Engine) ownedSession(ctx context.Context, sessionID, candidateID uuid.UUID) (*models.Session, error) {
	s, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if s.CandidateID != candidateID {
		return nil, ErrAccessDenied
	}
	return s, nil
}

// Join registers a connection. The timer starts on the first join of an
// in_progress session and is shared by every later connection.
func (e *Engine) Join(ctx context.Context, sessionID, candidateID uuid.UUID) (*models.JoinedEvent, error) {
	s, err := e.ownedSession(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}

	a := e.actorFor(sessionID)
	a.mu.Lock()
	a.conns++
	conns := a.conns
	if s.Status == models.StatusInProgress && a.timer == nil {
		e.startTimerLocked(a, sessionID)
	}
	a.mu.Unlock()

	return &models.JoinedEvent{SessionID: sessionID, Status: s.Status, Connections: conns}, nil
}

// Leave deregisters a connection; the timer stops only when the last
// connection for the session is gone. The actor entry itself is never
// removed, so a submission still in flight keeps its guard and its lock
// even when every device has disconnected.
func (e *Engine) Leave(sessionID, candidateID uuid.UUID) {
	e.mu.Lock()
	a, ok := e.actors[sessionID]
	e.mu.Unlock()
	if !ok {
		return
	}

	a.mu.Lock()
	if a.conns > 0 {
		a.conns--
	}
	if a.conns == 0 && a.timer != nil {
		a.timer.stopTimer()
		a.timer = nil
	}
	a.mu.Unlock()
}

// Start moves a scheduled session into in_progress. A candidate may only have
// one in-flight interview at a time.
func (e *Engine) Start(ctx context.Context, sessionID, candidateID uuid.UUID) (*models.Session, error) {
	s, err := e.ownedSession(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}

	a := e.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()

	if s.Status != models.StatusScheduled {
		return nil, ErrSessionNotScheduled
	}

	active, err := e.store.ActiveSessionByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if active != nil && active.ID != sessionID {
		return nil, ErrActiveSessionExists
	}

	now := time.Now()
	s.Status = models.StatusInProgress
	s.StartedAt = &now
	s.TotalDurationSeconds = int(e.cfg.TotalDuration.Seconds())
	s.TimeRemainingSeconds = s.TotalDurationSeconds
	s.LastTimeUpdate = &now

	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}

	e.startTimerLocked(a, sessionID)
	metrics.ActiveSessions.Inc()
	log.Printf("Interview %s started for candidate %s", sessionID, candidateID)
	return s, nil
}

// Cancel ends a session before or during the interview.
func (e *Engine) Cancel(ctx context.Context, sessionID, candidateID uuid.UUID) error {
	s, err := e.ownedSession(ctx, sessionID, candidateID)
	if err != nil {
		return err
	}

	a := e.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()

	switch s.Status {
	case models.StatusCompleted, models.StatusCancelled:
		return ErrNotInProgress
	}

	wasInProgress := s.Status == models.StatusInProgress
	e.finalizeLocked(a, s, models.StatusCancelled, models.ReasonCancelled)
	if err := e.store.SaveSession(ctx, s); err != nil {
		return err
	}
	if wasInProgress {
		metrics.ActiveSessions.Dec()
	}

	e.bus.Publish(sessionID, models.WSMessage{
		Type:    models.EventInterviewComplete,
		Payload: models.InterviewCompleteEvent{Reason: models.ReasonCancelled},
	})
	return nil
}

// finalizeLocked moves the session to a terminal state and stops the timer.
// Callers hold the actor lock and persist the session themselves.
func (e *Engine) finalizeLocked(a *actor, s *models.Session, status models.SessionStatus, reason models.CompletionReason) {
	now := time.Now()
	s.Status = status
	s.CompletedAt = &now
	s.CompletionReason = &reason
	if a.timer != nil {
		a.timer.stopTimer()
		a.timer = nil
	}
	metrics.SessionsFinished.WithLabelValues(string(reason)).Inc()
}

// ApplyCritique stores an asynchronously generated critique under the same
// per-session serialization as every other mutation. The critique is written
// once; a record that already has one keeps it.
func (e *Engine) ApplyCritique(ctx context.Context, sessionID, questionID uuid.UUID, critique models.Critique) error {
	a := e.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := e.store.Record(ctx, sessionID, questionID)
	if err != nil {
		return ErrQuestionNotFound
	}
	if !rec.IsAnswered || rec.Critique != nil {
		return nil
	}

	now := time.Now()
	rec.Critique = &critique
	rec.CritiqueAt = &now
	return e.store.SaveRecord(ctx, rec)
}
