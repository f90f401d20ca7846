package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"intervia-backend/internal/interview"
	"intervia-backend/internal/middleware"
	"intervia-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one candidate device. Writes go through the mutex because both
// the read loop (replies) and the pub/sub fan-out (broadcasts) send to it.
type client struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	candidateID uuid.UUID
	sessionID   uuid.UUID // zero until the client joins a session
}

func (c *client) send(msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()
}

func (c *client) sendError(code, message string) {
	c.send(models.WSMessage{
		Type:    models.EventError,
		Payload: models.WSErrorEvent{Code: code, Message: message},
	})
}

// Hub keys connections by session id and dispatches inbound events to the
// interview engine. Session events travel through redis pub/sub, so every
// node's connections see them regardless of which node produced them.
type Hub struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID][]*client
	cancelFuncs map[uuid.UUID]context.CancelFunc

	redisClient *redis.Client
	jwt         *middleware.JWTAuth
	engine      *interview.Engine
}

func NewHub(redisClient *redis.Client, jwt *middleware.JWTAuth, engine *interview.Engine) *Hub {
	return &Hub{
		sessions:    make(map[uuid.UUID][]*client),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		redisClient: redisClient,
		jwt:         jwt,
		engine:      engine,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	candidateID, err := h.jwt.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, candidateID: candidateID}
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.disconnect(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var evt models.ClientEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.sendError("VALIDATION_ERROR", "Malformed event")
			continue
		}
		h.dispatch(c, evt)
	}
}

// dispatch routes one inbound event to the engine and replies on the same
// connection. Broadcast-worthy results reach the other devices through the
// engine's publisher.
func (h *Hub) dispatch(c *client, evt models.ClientEvent) {
	ctx := context.Background()

	switch evt.Type {
	case models.EventJoin:
		var p models.JoinPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.SessionID == uuid.Nil {
			c.sendError("VALIDATION_ERROR", "join requires a session_id")
			return
		}
		joined, err := h.engine.Join(ctx, p.SessionID, c.candidateID)
		if err != nil {
			h.replyError(c, err)
			return
		}
		h.register(c, p.SessionID)
		c.send(models.WSMessage{Type: models.EventJoined, Payload: joined})

		// A joining device with history in flight gets the resume view
		// immediately, so a mid-interview device switch needs no extra call.
		if resumed, err := h.engine.Resume(ctx, c.candidateID, p.SessionID); err == nil && len(resumed.ChatHistory) > 0 {
			c.send(models.WSMessage{Type: models.EventReconnected, Payload: resumed})
		}

	case models.EventRequestFirstQuestion:
		var p models.JoinPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			c.sendError("VALIDATION_ERROR", "Malformed payload")
			return
		}
		if _, err := h.engine.RequestFirstQuestion(ctx, h.sessionFor(c, p.SessionID), c.candidateID); err != nil {
			h.replyError(c, err)
		}

	case models.EventSubmitAnswer:
		var p models.SubmitAnswerPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.QuestionID == uuid.Nil {
			c.sendError("VALIDATION_ERROR", "Malformed payload")
			return
		}
		_, err := h.engine.SubmitAnswer(ctx, interview.SubmitInput{
			SessionID:   h.sessionFor(c, p.SessionID),
			CandidateID: c.candidateID,
			QuestionID:  p.QuestionID,
			Answer:      p.Answer,
			Proctoring:  p.Proctoring,
		})
		if err != nil {
			h.replyError(c, err)
		}

	case models.EventUpdateProctoring:
		var p models.UpdateProctoringPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			c.sendError("VALIDATION_ERROR", "Malformed payload")
			return
		}
		if err := h.engine.UpdateProctoring(ctx, h.sessionFor(c, p.SessionID), c.candidateID, p.Patch); err != nil {
			h.replyError(c, err)
		}

	case models.EventGetTimeRemaining:
		var p models.JoinPayload
		json.Unmarshal(evt.Payload, &p)
		update, err := h.engine.TimeRemaining(ctx, h.sessionFor(c, p.SessionID), c.candidateID)
		if err != nil {
			h.replyError(c, err)
			return
		}
		c.send(models.WSMessage{Type: models.EventTimerUpdate, Payload: update})

	case models.EventRevealHint:
		var p models.RevealHintPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.QuestionID == uuid.Nil {
			c.sendError("VALIDATION_ERROR", "Malformed payload")
			return
		}
		hint, err := h.engine.RevealHint(ctx, h.sessionFor(c, p.SessionID), p.QuestionID, c.candidateID)
		if err != nil {
			h.replyError(c, err)
			return
		}
		// Only the requesting device sees the expected answer.
		c.send(models.WSMessage{Type: models.EventHintRevealed, Payload: hint})

	case models.EventLeave:
		h.disconnect(c)

	default:
		c.sendError("VALIDATION_ERROR", "Unknown event type: "+evt.Type)
	}
}

// sessionFor prefers the payload's session id, falling back to the one the
// client joined with.
func (h *Hub) sessionFor(c *client, payloadID uuid.UUID) uuid.UUID {
	if payloadID != uuid.Nil {
		return payloadID
	}
	return c.sessionID
}

func (h *Hub) replyError(c *client, err error) {
	var ierr *interview.Error
	if errors.As(err, &ierr) {
		c.sendError(ierr.Code, ierr.Message)
		return
	}
	c.sendError("INTERNAL_ERROR", "An unexpected error occurred")
}

func (h *Hub) register(c *client, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.sessionID = sessionID
	h.sessions[sessionID] = append(h.sessions[sessionID], c)

	// First connection for this session starts the pub/sub subscription.
	if len(h.sessions[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	log.Printf("WebSocket joined: session %s (connections: %d)", sessionID, len(h.sessions[sessionID]))
}

func (h *Hub) disconnect(c *client) {
	c.conn.Close()

	if c.sessionID == uuid.Nil {
		return
	}
	sessionID := c.sessionID
	c.sessionID = uuid.Nil

	h.mu.Lock()
	conns := h.sessions[sessionID]
	for i, other := range conns {
		if other == c {
			h.sessions[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.sessions[sessionID]) == 0 {
		delete(h.sessions, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}
	h.mu.Unlock()

	h.engine.Leave(sessionID, c.candidateID)
	log.Printf("WebSocket left: session %s", sessionID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	channel := sessionChannel(sessionID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := make([]*client, len(h.sessions[sessionID]))
	copy(clients, h.sessions[sessionID])
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
	}
}
