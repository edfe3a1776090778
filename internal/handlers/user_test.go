package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
	"github.com/bazario/bazario-backend/pkg/utils"
)

func TestRegistrationDefersAccountUntilActivation(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, multipartRequest(t, "/api/v2/user/create-user", "file", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "correct horse",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "ada@example.com")

	// No account exists until the emailed link is followed.
	_, err := e.users.FindByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mail := e.mail.last(t)
	assert.Equal(t, "ada@example.com", mail.To)

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/user/activation/"+mail.activationToken(t), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sessionCookie(t, rec, services.UserCookie)

	user, err := e.users.FindByEmailWithPassword(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.Avatar.PublicID)

	// The stored credential is a hash, never the submitted password.
	assert.NotEqual(t, "correct horse", user.Password)
	ok, err := utils.VerifyPassword("correct horse", user.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistrationMissingFields(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, multipartRequest(t, "/api/v2/user/create-user", "file", map[string]string{
		"name":  "Ada",
		"email": "ada@example.com",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please provide all fields")

	rec = e.do(t, multipartRequest(t, "/api/v2/user/create-user", "", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "pw",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file uploaded")
}

func TestRegistrationDuplicateEmailRollsBackAvatar(t *testing.T) {
	e := newEnv(t)
	e.registerAndActivate(t, "Ada", "ada@example.com", "pw-one")

	rec := e.do(t, multipartRequest(t, "/api/v2/user/create-user", "file", map[string]string{
		"name":     "Imposter",
		"email":    "ada@example.com",
		"password": "pw-two",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already exists")

	// The just-uploaded avatar must not be orphaned in object storage.
	last := e.media.uploaded[len(e.media.uploaded)-1]
	assert.True(t, e.media.wasDeleted(last))
}

func TestActivationLinkClickedTwice(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, multipartRequest(t, "/api/v2/user/create-user", "file", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "pw",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	token := e.mail.last(t).activationToken(t)
	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/user/activation/"+token, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/user/activation/"+token, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already exists")

	// The avatar still backs the account created by the first click.
	user, err := e.users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.False(t, e.media.wasDeleted(user.Avatar.PublicID))
}

func TestActivationRejectsGarbageToken(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/user/activation/not-a-token", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMailFailureRollsBackAvatar(t *testing.T) {
	e := newEnv(t)
	e.mail.fail = true

	rec := e.do(t, multipartRequest(t, "/api/v2/user/create-user", "file", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "pw",
	}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, e.media.wasDeleted(e.media.uploaded[0]))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.registerAndActivate(t, "Ada", "ada@example.com", "correct horse")

	rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/user/login-user", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sessionCookie(t, rec, services.UserCookie)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]interface{})
	_, hasPassword := user["password"]
	assert.False(t, hasPassword, "password must never appear in responses")
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.registerAndActivate(t, "Ada", "ada@example.com", "correct horse")

	rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/user/login-user", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.Empty(t, rec.Result().Cookies(), "no session on failed login")
}

func TestLoginUnknownAccount(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/user/login-user", map[string]string{
		"email":    "nobody@example.com",
		"password": "pw",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User doesn't exist")
}

func TestGetUserRequiresSession(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/user/getuser", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please login to continue")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/user/getuser", nil)
	req.AddCookie(cookie)
	rec = e.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "ada@example.com")
}

func TestLogoutClearsCookie(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/user/logout", nil)
	req.AddCookie(cookie)
	rec := e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	cleared := sessionCookie(t, rec, services.UserCookie)
	assert.Equal(t, "null", cleared.Value)
	assert.False(t, cleared.Expires.After(time.Now()))
}

func TestUpdatePassword(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "old-pw")

	send := func(oldPW, newPW, confirm string) *httptest.ResponseRecorder {
		req := jsonRequest(t, http.MethodPut, "/api/v2/user/update-user-password", map[string]string{
			"oldPassword":     oldPW,
			"newPassword":     newPW,
			"confirmPassword": confirm,
		})
		req.AddCookie(cookie)
		return e.do(t, req)
	}

	rec := send("bogus", "new-pw", "new-pw")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Old password is incorrect")

	rec = send("old-pw", "new-pw", "different")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")

	rec = send("old-pw", "new-pw", "new-pw")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Old credential is gone, the new one works, and the session that made
	// the change is still valid.
	rec = e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/user/login-user", map[string]string{
		"email": "ada@example.com", "password": "old-pw",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/user/login-user", map[string]string{
		"email": "ada@example.com", "password": "new-pw",
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/user/getuser", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusOK, e.do(t, req).Code)
}

func TestUpdateInfoChecksPassword(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	req := jsonRequest(t, http.MethodPut, "/api/v2/user/update-user-info", map[string]string{
		"name":        "Ada L.",
		"email":       "ada@example.com",
		"password":    "wrong",
		"phoneNumber": "5551234",
	})
	req.AddCookie(cookie)
	rec := e.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")

	req = jsonRequest(t, http.MethodPut, "/api/v2/user/update-user-info", map[string]string{
		"name":        "Ada L.",
		"email":       "ada@example.com",
		"password":    "pw",
		"phoneNumber": "5551234",
	})
	req.AddCookie(cookie)
	rec = e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user, err := e.users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", user.Name)
	assert.Equal(t, "5551234", user.PhoneNumber)

	// Mutating profile fields must not wipe the stored password hash.
	rec = e.do(t, jsonRequest(t, http.MethodPost, "/api/v2/user/login-user", map[string]string{
		"email": "ada@example.com", "password": "pw",
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUpdateAvatarReplacesOldAsset(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	before, err := e.users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)

	req := multipartRequest(t, "/api/v2/user/update-avatar", "image", nil)
	req.Method = http.MethodPut
	req.AddCookie(cookie)
	rec := e.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	after, err := e.users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, before.Avatar.PublicID, after.Avatar.PublicID)
	assert.True(t, e.media.wasDeleted(before.Avatar.PublicID))
}
