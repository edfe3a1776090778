package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
	"github.com/bazario/bazario-backend/pkg/apperr"
)

// ChatHandler serves conversation and message REST endpoints. Realtime
// delivery rides on the broker; these endpoints are the source of truth.
type ChatHandler struct {
	Messages store.MessageStore
	Broker   *services.ChatBroker
}

type createConversationRequest struct {
	GroupTitle string `json:"groupTitle"`
	UserID     string `json:"userId"`
	SellerID   string `json:"sellerId"`
}

// CreateConversation handles POST /create-new-conversation. Idempotent on
// groupTitle: a repeat call returns the existing conversation.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}
	if req.GroupTitle == "" || req.UserID == "" || req.SellerID == "" {
		writeError(w, apperr.Validation("Please provide all fields"))
		return
	}

	conv, created, err := h.Messages.FindOrCreateConversation(r.Context(), &models.Conversation{
		GroupTitle: req.GroupTitle,
		Members:    []string{req.UserID, req.SellerID},
	})
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"success":      true,
		"conversation": conv,
	})
}

// UserConversations handles GET /get-all-conversation-user/{id}.
func (h *ChatHandler) UserConversations(w http.ResponseWriter, r *http.Request) {
	h.conversationsByMember(w, r)
}

// SellerConversations handles GET /get-all-conversation-seller/{id}.
func (h *ChatHandler) SellerConversations(w http.ResponseWriter, r *http.Request) {
	h.conversationsByMember(w, r)
}

func (h *ChatHandler) conversationsByMember(w http.ResponseWriter, r *http.Request) {
	convs, err := h.Messages.ConversationsByMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"conversations": convs,
	})
}

type updateLastMessageRequest struct {
	LastMessage   string `json:"lastMessage"`
	LastMessageID string `json:"lastMessageId"`
}

// UpdateLastMessage handles PUT /update-last-message/{id}.
func (h *ChatHandler) UpdateLastMessage(w http.ResponseWriter, r *http.Request) {
	convID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NotFound("Conversation not found"))
		return
	}

	var req updateLastMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}

	if err := h.Messages.UpdateLastMessage(r.Context(), convID, req.LastMessage, req.LastMessageID); err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.NotFound("Conversation not found"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Last message updated",
	})
}

type createMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Sender         string `json:"sender"`
	Text           string `json:"text"`
	Images         string `json:"images,omitempty"`
}

// CreateMessage handles POST /create-new-message. The stored message is also
// published so connected websocket clients see it immediately.
func (h *ChatHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}
	if req.ConversationID == "" || req.Sender == "" {
		writeError(w, apperr.Validation("Please provide all fields"))
		return
	}
	if req.Text == "" && req.Images == "" {
		writeError(w, apperr.Validation("Message text or image is required"))
		return
	}

	msg := &models.Message{
		ConversationID: req.ConversationID,
		Sender:         req.Sender,
		Text:           req.Text,
	}
	if req.Images != "" {
		msg.Images = &models.Avatar{URL: req.Images}
	}

	if err := h.Messages.InsertMessage(r.Context(), msg); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	_ = h.Broker.Publish(r.Context(), services.ChatEvent{
		Type:           services.EventTypeMessage,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Message:        msg,
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

// ConversationMessages handles GET /get-all-messages/{id}. Supports
// before (RFC3339) + limit scrolling, oldest-first within the page.
func (h *ChatHandler) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apperr.Validation("Invalid before timestamp"))
			return
		}
		before = &t
	}

	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	msgs, hasMore, err := h.Messages.MessagesByConversation(r.Context(), chi.URLParam(r, "id"), before, limit)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"messages": msgs,
		"hasMore":  hasMore,
	})
}
