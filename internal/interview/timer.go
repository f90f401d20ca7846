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

// sessionTimer is the stop handle for one session's countdown goroutine.
// stopTimer is safe to call any number of times from any termination path.
type sessionTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *sessionTimer) stopTimer() {
	t.once.Do(func() { close(t.stop) })
}

// startTimerLocked launches the countdown goroutine. Caller holds the actor
// lock; at most one timer exists per session.
func (e *Engine) startTimerLocked(a *actor, sessionID uuid.UUID) {
	t := &sessionTimer{stop: make(chan struct{})}
	a.timer = t
	go e.runTimer(sessionID, a, t)
}

func (e *Engine) runTimer(sessionID uuid.UUID, a *actor, t *sessionTimer) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if done := e.tick(sessionID, a, t); done {
				return
			}
		}
	}
}

// tick advances the countdown once. It reports true when the timer should
// stop, either because the session left in_progress or because time ran out.
// The completed transition is guarded by the status check under the actor
// lock, so it fires exactly once even with ticks still scheduled.
func (e *Engine) tick(sessionID uuid.UUID, a *actor, t *sessionTimer) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []models.WSMessage

	a.mu.Lock()
	s, err := e.store.Session(ctx, sessionID)
	if err != nil {
		// Stale timer state is worse than a stopped timer.
		log.Printf("Timer for session %s: load failed, stopping: %v", sessionID, err)
		t.stopTimer()
		a.timer = nil
		a.mu.Unlock()
		return true
	}

	if s.Status != models.StatusInProgress || s.StartedAt == nil {
		t.stopTimer()
		a.timer = nil
		a.mu.Unlock()
		return true
	}

	now := time.Now()
	elapsed := int(now.Sub(*s.StartedAt).Seconds())
	remaining := s.TotalDurationSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}

	s.TimeRemainingSeconds = remaining
	s.LastTimeUpdate = &now

	expired := remaining == 0
	if expired {
		e.finalizeLocked(a, s, models.StatusCompleted, models.ReasonTimeExpired)
		metrics.ActiveSessions.Dec()
	}

	if err := e.store.SaveSession(ctx, s); err != nil {
		log.Printf("Timer for session %s: persist failed, stopping: %v", sessionID, err)
		t.stopTimer()
		a.timer = nil
		a.mu.Unlock()
		return true
	}
	a.mu.Unlock()

	events = append(events, models.WSMessage{
		Type:    models.EventTimerUpdate,
		Payload: models.TimerUpdateEvent{Remaining: remaining, Elapsed: elapsed, IsExpired: expired},
	})
	if expired {
		events = append(events,
			models.WSMessage{Type: models.EventInterviewExpired, Payload: models.TimerUpdateEvent{Remaining: 0, Elapsed: elapsed, IsExpired: true}},
			models.WSMessage{Type: models.EventInterviewComplete, Payload: models.InterviewCompleteEvent{Reason: models.ReasonTimeExpired}},
		)
	}
	for _, msg := range events {
		e.bus.Publish(sessionID, msg)
	}

	return expired
}

// TimeRemaining answers the get_time_remaining event without waiting for the
// next tick.
func (e *Engine) TimeRemaining(ctx context.Context, sessionID, candidateID uuid.UUID) (*models.TimerUpdateEvent, error) {
	s, err := e.ownedSession(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	if s.StartedAt == nil {
		return &models.TimerUpdateEvent{Remaining: s.TotalDurationSeconds}, nil
	}

	elapsed := int(time.Since(*s.StartedAt).Seconds())
	remaining := s.TotalDurationSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if s.Status != models.StatusInProgress {
		remaining = s.TimeRemainingSeconds
	}
	return &models.TimerUpdateEvent{
		Remaining: remaining,
		Elapsed:   elapsed,
		IsExpired: remaining == 0 && s.Status != models.StatusInProgress,
	}, nil
}
