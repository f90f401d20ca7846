package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"intervia-backend/internal/models"
)

func sessionChannel(sessionID uuid.UUID) string {
	return "session_events:" + sessionID.String()
}

// Publisher pushes session events into redis pub/sub. The engine talks to
// this, the hub listens on the other side; the two never reference each
// other directly.
type Publisher struct {
	redisClient *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redisClient: redisClient}
}

func (p *Publisher) Publish(sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.redisClient.Publish(ctx, sessionChannel(sessionID), string(data)).Err(); err != nil {
		log.Printf("Publish to session %s failed: %v", sessionID, err)
	}
}
