package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/bazario/bazario-backend/internal/handlers"
	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/routes"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
)

// fakeMedia records uploads and deletions instead of talking to Cloudinary.
type fakeMedia struct {
	mu       sync.Mutex
	seq      int
	uploaded []string
	deleted  []string
	failNext bool
}

func (f *fakeMedia) Upload(ctx context.Context, data []byte, folder string) (models.Avatar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return models.Avatar{}, fmt.Errorf("upload rejected")
	}
	f.seq++
	id := fmt.Sprintf("%s/img-%d", folder, f.seq)
	f.uploaded = append(f.uploaded, id)
	return models.Avatar{PublicID: id, URL: "https://cdn.test/" + id}, nil
}

func (f *fakeMedia) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

func (f *fakeMedia) Replace(ctx context.Context, oldPublicID string, data []byte, folder string) (models.Avatar, error) {
	ref, err := f.Upload(ctx, data, folder)
	if err != nil {
		return models.Avatar{}, err
	}
	_ = f.Delete(ctx, oldPublicID)
	return ref, nil
}

func (f *fakeMedia) wasDeleted(publicID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.deleted {
		if id == publicID {
			return true
		}
	}
	return false
}

// fakeMailer captures sent mail so tests can pull activation links out.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail was sent")
	return f.sent[len(f.sent)-1]
}

// activationToken extracts the token from the last part of the emailed link.
func (m sentMail) activationToken(t *testing.T) string {
	t.Helper()
	idx := strings.LastIndex(m.Body, "/activation/")
	require.NotEqual(t, -1, idx, "mail body has no activation link: %s", m.Body)
	return strings.TrimSpace(m.Body[idx+len("/activation/"):])
}

// env is a fully wired API over in-memory stores and fakes.
type env struct {
	handler  http.Handler
	users    *store.MemoryUserStore
	shops    *store.MemoryShopStore
	events   *store.MemoryEventStore
	messages *store.MemoryMessageStore
	media    *fakeMedia
	mail     *fakeMailer
	broker   *services.ChatBroker
}

func newEnv(t *testing.T) *env {
	t.Helper()

	users := store.NewMemoryUserStore()
	shops := store.NewMemoryShopStore()
	events := store.NewMemoryEventStore()
	messages := store.NewMemoryMessageStore()
	media := &fakeMedia{}
	mail := &fakeMailer{}

	activation := services.NewActivationTokens("test-activation-secret")
	userSessions := services.NewSessions("test-session-secret", services.UserCookie)
	sellerSessions := services.NewSessions("test-session-secret", services.SellerCookie)
	cache := services.NewCache(nil)
	broker := services.NewChatBroker(services.NewChatHub(), nil)

	r := chi.NewRouter()
	routes.SetupRoutes(r, routes.Deps{
		Users: &handlers.UserHandler{
			Users:       users,
			Media:       media,
			Mail:        mail,
			Activation:  activation,
			Sessions:    userSessions,
			Cache:       cache,
			FrontendURL: "https://shop.test",
		},
		Shops: &handlers.ShopHandler{
			Shops:       shops,
			Media:       media,
			Mail:        mail,
			Activation:  activation,
			Sessions:    sellerSessions,
			Cache:       cache,
			FrontendURL: "https://shop.test",
		},
		Events: &handlers.EventHandler{Events: events, Media: media},
		Chat:   &handlers.ChatHandler{Messages: messages, Broker: broker},
		ChatWS: &handlers.ChatWSHandler{
			Messages: messages,
			Broker:   broker,
			Users:    userSessions,
			Shops:    sellerSessions,
		},
		UserSessions:   userSessions,
		SellerSessions: sellerSessions,
		UserStore:      users,
		ShopStore:      shops,
	})

	return &env{
		handler:  r,
		users:    users,
		shops:    shops,
		events:   events,
		messages: messages,
		media:    media,
		mail:     mail,
		broker:   broker,
	}
}

func (e *env) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a registration-style form with an attached image.
func multipartRequest(t *testing.T, target, fileField string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, "avatar.png")
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader([]byte("fake-png-bytes")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q cookie in response", name)
	return nil
}

// registerAndActivate drives the full deferred-activation flow and returns
// the session cookie for the new account.
func (e *env) registerAndActivate(t *testing.T, name, email, password string) *http.Cookie {
	t.Helper()

	rec := e.do(t, multipartRequest(t, "/api/v2/user/create-user", "file", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	token := e.mail.last(t).activationToken(t)
	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/user/activation/"+token, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return sessionCookie(t, rec, services.UserCookie)
}
