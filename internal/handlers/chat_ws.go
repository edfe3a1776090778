package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks happen at the CORS layer for the REST surface;
		// the websocket authenticates via the session token instead.
		return true
	},
}

// chatClientMessage is what the storefront sends over the socket.
type chatClientMessage struct {
	Type           string `json:"type"` // "message", "ping"
	ConversationID string `json:"conversationId"`
	Text           string `json:"text,omitempty"`
}

// wsWriter serializes writes to one connection. gorilla/websocket permits a
// single concurrent writer, and both the hub-forwarding goroutine and the
// read loop's replies write here.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// ChatWSHandler upgrades authenticated clients and binds each connection to
// one conversation. Incoming messages are persisted, then fanned out through
// the broker so every instance's subscribers receive them.
type ChatWSHandler struct {
	Messages store.MessageStore
	Broker   *services.ChatBroker
	Users    *services.Sessions
	Shops    *services.Sessions
}

func (h *ChatWSHandler) accountID(r *http.Request) string {
	// Either side of a conversation may connect: try the buyer session
	// first, then the seller one. Query param fallback for browsers that
	// cannot set headers on the websocket handshake.
	for _, s := range []*services.Sessions{h.Users, h.Shops} {
		if token := s.TokenFromRequest(r); token != "" {
			if id, err := s.Verify(token); err == nil {
				return id
			}
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		if id, err := h.Users.Verify(token); err == nil {
			return id
		}
		if id, err := h.Shops.Verify(token); err == nil {
			return id
		}
	}
	return ""
}

// ServeHTTP handles GET /ws/chat?conversation_id=...
func (h *ChatWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accountID := h.accountID(r)
	if accountID == "" {
		http.Error(w, "missing or invalid session token", http.StatusUnauthorized)
		return
	}

	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	writer := &wsWriter{conn: conn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	eventsCh, unsubscribe := h.Broker.Hub().Subscribe(conversationID)
	defer unsubscribe()

	// Forward hub events to this connection.
	go func() {
		for evt := range eventsCh {
			if err := writer.WriteJSON(evt); err != nil {
				cancel()
				return
			}
		}
	}()

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg chatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.ConversationID == "" {
			msg.ConversationID = conversationID
		}

		switch msg.Type {
		case "message":
			h.handleIncoming(ctx, writer, accountID, msg)
		case "ping":
			_ = writer.WriteJSON(map[string]string{"type": "pong"})
		default:
			// Ignore unknown types.
		}
	}
}

func (h *ChatWSHandler) handleIncoming(ctx context.Context, writer *wsWriter, sender string, msg chatClientMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	stored := &models.Message{
		ConversationID: msg.ConversationID,
		Sender:         sender,
		Text:           text,
	}
	if err := h.Messages.InsertMessage(ctx, stored); err != nil {
		log.Printf("failed to persist chat message: %v", err)
		_ = writer.WriteJSON(services.ChatEvent{
			Type:           services.EventTypeError,
			ConversationID: msg.ConversationID,
			Error:          "failed to persist message",
			Timestamp:      time.Now().UTC(),
		})
		return
	}

	if err := h.Broker.Publish(ctx, services.ChatEvent{
		Type:           services.EventTypeMessage,
		ConversationID: stored.ConversationID,
		Sender:         sender,
		Message:        stored,
	}); err != nil {
		log.Printf("failed to publish chat event: %v", err)
	}
}
