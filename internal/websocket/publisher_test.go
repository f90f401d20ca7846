package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"intervia-backend/internal/models"
)

func TestSessionChannel(t *testing.T) {
	id := uuid.MustParse("4f5c9a14-6b89-4a49-92f5-9a41f4a1f001")
	want := "session_events:4f5c9a14-6b89-4a49-92f5-9a41f4a1f001"
	if got := sessionChannel(id); got != want {
		t.Errorf("Expected channel %q, got %q", want, got)
	}
}

func TestPublisher_DeliversToSessionChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sessionID := uuid.New()
	sub := client.Subscribe(context.Background(), sessionChannel(sessionID))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	pub := NewPublisher(client)
	pub.Publish(sessionID, models.WSMessage{
		Type:    models.EventTimerUpdate,
		Payload: models.TimerUpdateEvent{Remaining: 120, Elapsed: 2580},
	})

	select {
	case raw := <-sub.Channel():
		var msg models.WSMessage
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			t.Fatalf("Failed to decode published message: %v", err)
		}
		if msg.Type != models.EventTimerUpdate {
			t.Errorf("Expected type %q, got %q", models.EventTimerUpdate, msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for published message")
	}
}

func TestPublisher_SessionIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	listening := uuid.New()
	other := uuid.New()

	sub := client.Subscribe(context.Background(), sessionChannel(listening))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	pub := NewPublisher(client)
	pub.Publish(other, models.WSMessage{Type: models.EventTimerUpdate})

	select {
	case raw := <-sub.Channel():
		t.Errorf("Received message meant for another session: %s", raw.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}
