package interview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervia-backend/internal/models"
)

// fastRig is a rig whose timer ticks every few milliseconds.
func fastRig(t *testing.T) *testRig {
	t.Helper()
	rig := newTestRig(t, 3)
	rig.engine.cfg.TickInterval = 5 * time.Millisecond
	return rig
}

func markStarted(rig *testRig, startedAgo time.Duration, totalSeconds int) {
	rig.store.mu.Lock()
	defer rig.store.mu.Unlock()
	s := rig.store.sessions[rig.sessionID]
	started := time.Now().Add(-startedAgo)
	s.Status = models.StatusInProgress
	s.StartedAt = &started
	s.TotalDurationSeconds = totalSeconds
	s.TimeRemainingSeconds = totalSeconds
	rig.store.sessions[rig.sessionID] = s
}

func TestTimer_TicksPublishUpdates(t *testing.T) {
	rig := fastRig(t)
	markStarted(rig, 10*time.Second, 3600)

	_, err := rig.engine.Join(context.Background(), rig.sessionID, rig.candidateID)
	require.NoError(t, err)
	defer rig.engine.Leave(rig.sessionID, rig.candidateID)

	require.Eventually(t, func() bool {
		return rig.bus.count(models.EventTimerUpdate) >= 2
	}, time.Second, 5*time.Millisecond)

	s, err := rig.store.Session(context.Background(), rig.sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, s.Status)
	assert.InDelta(t, 3590, s.TimeRemainingSeconds, 2)
	require.NotNil(t, s.LastTimeUpdate)
}

func TestTimer_ExpiryFinalizesExactlyOnce(t *testing.T) {
	rig := fastRig(t)
	markStarted(rig, 2*time.Hour, 3600)

	_, err := rig.engine.Join(context.Background(), rig.sessionID, rig.candidateID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := rig.store.Session(context.Background(), rig.sessionID)
		return err == nil && s.Status == models.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	s, err := rig.store.Session(context.Background(), rig.sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TimeRemainingSeconds)
	require.NotNil(t, s.CompletionReason)
	assert.Equal(t, models.ReasonTimeExpired, *s.CompletionReason)
	require.NotNil(t, s.CompletedAt)

	// Give further ticks a chance to misfire, then check exactly-once.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rig.bus.count(models.EventInterviewExpired))
	assert.Equal(t, 1, rig.bus.count(models.EventInterviewComplete))
}

func TestTimer_SubmissionAfterExpiryRejected(t *testing.T) {
	rig := fastRig(t)
	markStarted(rig, 2*time.Hour, 3600)

	_, err := rig.engine.Join(context.Background(), rig.sessionID, rig.candidateID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := rig.store.Session(context.Background(), rig.sessionID)
		return err == nil && s.Status == models.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	_, err = rig.engine.SubmitAnswer(context.Background(), SubmitInput{
		SessionID:   rig.sessionID,
		CandidateID: rig.candidateID,
		Answer:      "too late",
	})
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestResume_EagerlyFinalizesExpiredSession(t *testing.T) {
	// No timer running: the session ran out while nobody was connected.
	rig := newTestRig(t, 3)
	markStarted(rig, 2*time.Hour, 3600)

	_, err := rig.engine.Resume(context.Background(), rig.candidateID, rig.sessionID)
	require.NoError(t, err)

	s, err := rig.store.Session(context.Background(), rig.sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, s.Status)
	require.NotNil(t, s.CompletionReason)
	assert.Equal(t, models.ReasonTimeExpired, *s.CompletionReason)
}

func TestTimeRemaining_BeforeStart(t *testing.T) {
	rig := newTestRig(t, 3)
	rig.store.mu.Lock()
	s := rig.store.sessions[rig.sessionID]
	s.TotalDurationSeconds = 2700
	rig.store.sessions[rig.sessionID] = s
	rig.store.mu.Unlock()

	upd, err := rig.engine.TimeRemaining(context.Background(), rig.sessionID, rig.candidateID)
	require.NoError(t, err)
	assert.Equal(t, 2700, upd.Remaining)
	assert.False(t, upd.IsExpired)
}

func TestTimeRemaining_WhileRunning(t *testing.T) {
	rig := newTestRig(t, 3)
	markStarted(rig, 100*time.Second, 3600)

	upd, err := rig.engine.TimeRemaining(context.Background(), rig.sessionID, rig.candidateID)
	require.NoError(t, err)
	assert.InDelta(t, 3500, upd.Remaining, 2)
	assert.InDelta(t, 100, upd.Elapsed, 2)
	assert.False(t, upd.IsExpired)
}
