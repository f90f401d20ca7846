package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"intervia-backend/internal/models"
)

const critiqueQueue = "queue:critique-generation"

// Queue is the enqueue side, used by the interview engine.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) EnqueueCritique(ctx context.Context, job models.CritiqueJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, critiqueQueue, string(data)).Err()
}

// CritiqueGenerator is the slice of the AI service the workers need.
type CritiqueGenerator interface {
	Critique(ctx context.Context, question, answer string, proctoring models.Proctoring) models.Critique
}

// CritiqueApplier is the slice of the interview engine the workers need. The
// engine applies the result under the session's own serialization.
type CritiqueApplier interface {
	ApplyCritique(ctx context.Context, sessionID, questionID uuid.UUID, critique models.Critique) error
}

// Pool consumes critique jobs off the redis queue. Critique generation is
// fire-and-forget from the submission pipeline's point of view; these workers
// are where the work actually happens.
type Pool struct {
	redis       *redis.Client
	generator   CritiqueGenerator
	applier     CritiqueApplier
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, generator CritiqueGenerator, applier CritiqueApplier, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		generator:   generator,
		applier:     applier,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d critique worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Critique worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, critiqueQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.CritiqueJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Critique worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock so one answer is only critiqued once
		lockKey := fmt.Sprintf("critique_lock:%s", job.QuestionID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Critique worker %d: analyzing question %s", id, job.QuestionID)

		critique := p.generator.Critique(ctx, job.Question, job.Answer, job.Proctoring)
		if err := p.applier.ApplyCritique(ctx, job.SessionID, job.QuestionID, critique); err != nil {
			log.Printf("Critique worker %d: apply failed for question %s: %v", id, job.QuestionID, err)
		}

		p.redis.Del(ctx, lockKey)
	}
}
