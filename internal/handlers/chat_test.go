package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
)

func TestCreateConversationIdempotent(t *testing.T) {
	e := newEnv(t)

	body := map[string]string{
		"groupTitle": "product-1-user-1",
		"userId":     "user-1",
		"sellerId":   "seller-1",
	}

	rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/conversation/create-new-conversation", body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody(t, rec)["conversation"].(map[string]interface{})

	// The same pairing key returns the existing conversation, not a new one.
	rec = e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/conversation/create-new-conversation", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeBody(t, rec)["conversation"].(map[string]interface{})
	assert.Equal(t, first["_id"], second["_id"])
}

func TestConversationListingByMember(t *testing.T) {
	e := newEnv(t)
	userCookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")
	sellerCookie := e.registerAndActivateShop(t, "Ada's Emporium", "shop@example.com", "pw")

	rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/conversation/create-new-conversation", map[string]string{
		"groupTitle": "product-1-user-1",
		"userId":     "user-1",
		"sellerId":   "seller-1",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/conversation/get-all-conversation-user/user-1", nil)
	req.AddCookie(userCookie)
	rec = e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "product-1-user-1")

	req = httptest.NewRequest(http.MethodGet, "/api/v2/conversation/get-all-conversation-seller/seller-1", nil)
	req.AddCookie(sellerCookie)
	rec = e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "product-1-user-1")

	// Members not in the conversation see nothing.
	req = httptest.NewRequest(http.MethodGet, "/api/v2/conversation/get-all-conversation-user/someone-else", nil)
	req.AddCookie(userCookie)
	rec = e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "product-1-user-1")
}

func TestUpdateLastMessage(t *testing.T) {
	e := newEnv(t)

	conv, _, err := e.messages.FindOrCreateConversation(context.Background(), &models.Conversation{
		GroupTitle: "product-1-user-1",
		Members:    []string{"user-1", "seller-1"},
	})
	require.NoError(t, err)

	rec := e.do(t, jsonRequest(t, http.MethodPut, "/api/v2/conversation/update-last-message/"+conv.ID.Hex(), map[string]string{
		"lastMessage":   "see you tomorrow",
		"lastMessageId": "msg-9",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	convs, err := e.messages.ConversationsByMember(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "see you tomorrow", convs[0].LastMessage)
	assert.Equal(t, "msg-9", convs[0].LastMessageID)
}

func TestCreateMessageAndPagination(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 5; i++ {
		rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/message/create-new-message", map[string]string{
			"conversationId": "conv-1",
			"sender":         "user-1",
			"text":           fmt.Sprintf("message %d", i),
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		time.Sleep(2 * time.Millisecond)
	}

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/message/get-all-messages/conv-1?limit=3", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["hasMore"])
	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 3)

	// The newest page, oldest-first within it.
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.(map[string]interface{})["text"].(string)
	}
	assert.Equal(t, []string{"message 2", "message 3", "message 4"}, texts)
}

func TestCreateMessageValidation(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/message/create-new-message", map[string]string{
		"conversationId": "conv-1",
		"sender":         "user-1",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Message text or image is required")
}

func TestChatWebSocketRoundTrip(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?conversation_id=conv-1"
	header := http.Header{}
	header.Add("Cookie", cookie.Name+"="+cookie.Value)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type": "message",
		"text": "hello from the socket",
	}))

	// The persisted message is fanned back out to subscribers of the
	// conversation, including the sender.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt services.ChatEvent
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, services.EventTypeMessage, evt.Type)
	assert.Equal(t, "conv-1", evt.ConversationID)
	require.NotNil(t, evt.Message)
	assert.Equal(t, "hello from the socket", evt.Message.Text)

	msgs, _, err := e.messages.MessagesByConversation(context.Background(), "conv-1", nil, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello from the socket", msgs[0].Text)
}

func TestChatWebSocketConcurrentWrites(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?conversation_id=conv-1"
	header := http.Header{}
	header.Add("Cookie", cookie.Name+"="+cookie.Value)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Hub broadcasts race against the read loop's pong replies; both paths
	// write to the same connection and must be serialized server-side.
	const rounds = 20
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			e.broker.Hub().Broadcast(services.ChatEvent{
				Type:           services.EventTypeMessage,
				ConversationID: "conv-1",
				Sender:         "seller-1",
				Timestamp:      time.Now().UTC(),
			})
		}
	}()
	for i := 0; i < rounds; i++ {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	}
	<-done

	// Every frame must arrive intact; a torn concurrent write would break
	// the stream and fail the read.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	pongs, events := 0, 0
	for pongs < rounds {
		var raw map[string]interface{}
		require.NoError(t, conn.ReadJSON(&raw))
		switch raw["type"] {
		case "pong":
			pongs++
		case services.EventTypeMessage:
			events++
		}
	}
	assert.Equal(t, rounds, pongs)
	assert.LessOrEqual(t, events, rounds)
}

func TestChatWebSocketRejectsAnonymous(t *testing.T) {
	e := newEnv(t)

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?conversation_id=conv-1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
