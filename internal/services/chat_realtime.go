package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bazario/bazario-backend/internal/models"
)

// Chat event types sent to websocket clients.
const (
	EventTypeMessage = "message"
	EventTypeError   = "error"
)

const chatChannelPrefix = "chat:conversation:"

// ChatEvent is the payload broadcast over Redis and WebSocket.
type ChatEvent struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Sender         string          `json:"sender,omitempty"`
	Message        *models.Message `json:"message,omitempty"`
	Error          string          `json:"error,omitempty"`
	Timestamp      time.Time       `json:"timestamp,omitempty"`
}

// ChatHub fans events out to local websocket connections. Subscriptions are
// keyed by a per-connection UUID so one account can hold several tabs on the
// same conversation.
type ChatHub struct {
	mu   sync.RWMutex
	subs map[string]map[uuid.UUID]chan ChatEvent
}

func NewChatHub() *ChatHub {
	return &ChatHub{subs: make(map[string]map[uuid.UUID]chan ChatEvent)}
}

// Subscribe registers a connection for a conversation's events. The returned
// function must be called on disconnect; it closes the channel.
func (h *ChatHub) Subscribe(conversationID string) (<-chan ChatEvent, func()) {
	id := uuid.New()
	ch := make(chan ChatEvent, 16)

	h.mu.Lock()
	if h.subs[conversationID] == nil {
		h.subs[conversationID] = make(map[uuid.UUID]chan ChatEvent)
	}
	h.subs[conversationID][id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if conns, ok := h.subs[conversationID]; ok {
			if c, ok := conns[id]; ok {
				delete(conns, id)
				close(c)
			}
			if len(conns) == 0 {
				delete(h.subs, conversationID)
			}
		}
		h.mu.Unlock()
	}
}

// Broadcast delivers an event to every local subscriber of its conversation.
// Slow consumers are skipped rather than blocking the fan-out.
func (h *ChatHub) Broadcast(event ChatEvent) {
	if event.ConversationID == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[event.ConversationID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// ChatBroker bridges the local hub and Redis pub/sub so events reach
// subscribers on every instance. Without a Redis client it degrades to
// local-only delivery (single instance).
type ChatBroker struct {
	hub *ChatHub
	rdb *redis.Client

	startOnce sync.Once
}

func NewChatBroker(hub *ChatHub, rdb *redis.Client) *ChatBroker {
	return &ChatBroker{hub: hub, rdb: rdb}
}

func (b *ChatBroker) Hub() *ChatHub { return b.hub }

// Publish pushes an event to Redis for cross-instance fan-out, or straight to
// the local hub when Redis is not configured.
func (b *ChatBroker) Publish(ctx context.Context, event ChatEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if b.rdb == nil {
		b.hub.Broadcast(event)
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, chatChannelPrefix+event.ConversationID, data).Err()
}

// Start runs the shared Redis subscriber for this instance. Safe to call
// once; no-op without a Redis client.
func (b *ChatBroker) Start(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	b.startOnce.Do(func() {
		go b.runSubscriber(ctx)
	})
}

func (b *ChatBroker) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := b.rdb.PSubscribe(ctx, chatChannelPrefix+"*")
			defer pubsub.Close()

			log.Println("✅ Chat Redis subscriber started (pattern: " + chatChannelPrefix + "*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var event ChatEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal chat event: %v", err)
					continue
				}
				b.hub.Broadcast(event)
			}
		}()

		if ctx.Err() != nil {
			return
		}
	}
}
