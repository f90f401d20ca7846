package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervia-backend/internal/models"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Critique(_ context.Context, question, answer string, _ models.Proctoring) models.Critique {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return models.Critique{OverallRating: 7, Feedback: "critique of: " + answer}
}

type fakeApplier struct {
	mu      sync.Mutex
	applied map[uuid.UUID]models.Critique
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{applied: make(map[uuid.UUID]models.Critique)}
}

func (a *fakeApplier) ApplyCritique(_ context.Context, _, questionID uuid.UUID, critique models.Critique) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied[questionID] = critique
	return nil
}

func (a *fakeApplier) get(questionID uuid.UUID) (models.Critique, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.applied[questionID]
	return c, ok
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestEnqueueCritique_PushesJob(t *testing.T) {
	client := setupRedis(t)
	queue := NewQueue(client)

	job := models.CritiqueJob{
		SessionID:  uuid.New(),
		QuestionID: uuid.New(),
		Question:   "What is a goroutine?",
		Answer:     "A lightweight thread managed by the runtime.",
	}
	require.NoError(t, queue.EnqueueCritique(context.Background(), job))

	raw, err := client.RPop(context.Background(), critiqueQueue).Result()
	require.NoError(t, err)

	var decoded models.CritiqueJob
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, job.SessionID, decoded.SessionID)
	assert.Equal(t, job.QuestionID, decoded.QuestionID)
	assert.Equal(t, job.Answer, decoded.Answer)
}

func TestPool_ProcessesJob(t *testing.T) {
	client := setupRedis(t)
	queue := NewQueue(client)
	gen := &fakeGenerator{}
	applier := newFakeApplier()

	pool := NewPool(client, gen, applier, 2)
	pool.Start()
	defer pool.Stop()

	job := models.CritiqueJob{
		SessionID:  uuid.New(),
		QuestionID: uuid.New(),
		Question:   "Explain channels.",
		Answer:     "Channels synchronize goroutines.",
	}
	require.NoError(t, queue.EnqueueCritique(context.Background(), job))

	require.Eventually(t, func() bool {
		_, ok := applier.get(job.QuestionID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	critique, _ := applier.get(job.QuestionID)
	assert.Equal(t, 7, critique.OverallRating)
	assert.Contains(t, critique.Feedback, job.Answer)
}

func TestPool_LockPreventsDuplicateCritique(t *testing.T) {
	client := setupRedis(t)
	queue := NewQueue(client)
	gen := &fakeGenerator{}
	applier := newFakeApplier()

	job := models.CritiqueJob{
		SessionID:  uuid.New(),
		QuestionID: uuid.New(),
		Question:   "q",
		Answer:     "a",
	}

	// Pre-claim the lock as if another node were already critiquing this
	// answer, then run the pool against a queued duplicate.
	lockKey := "critique_lock:" + job.QuestionID.String()
	require.NoError(t, client.SetNX(context.Background(), lockKey, "1", time.Minute).Err())
	require.NoError(t, queue.EnqueueCritique(context.Background(), job))

	pool := NewPool(client, gen, applier, 1)
	pool.Start()
	defer pool.Stop()

	time.Sleep(100 * time.Millisecond)

	_, ok := applier.get(job.QuestionID)
	assert.False(t, ok, "locked job must be skipped")
	gen.mu.Lock()
	assert.Equal(t, 0, gen.calls)
	gen.mu.Unlock()
}

func TestPool_SkipsMalformedJob(t *testing.T) {
	client := setupRedis(t)
	gen := &fakeGenerator{}
	applier := newFakeApplier()

	require.NoError(t, client.LPush(context.Background(), critiqueQueue, "not-json").Err())

	queue := NewQueue(client)
	job := models.CritiqueJob{SessionID: uuid.New(), QuestionID: uuid.New(), Question: "q", Answer: "a"}
	require.NoError(t, queue.EnqueueCritique(context.Background(), job))

	pool := NewPool(client, gen, applier, 1)
	pool.Start()
	defer pool.Stop()

	// The malformed entry is dropped and the valid one still gets critiqued.
	require.Eventually(t, func() bool {
		_, ok := applier.get(job.QuestionID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}
