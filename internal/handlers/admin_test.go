package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/store"
)

// promote flips a registered account to the admin role directly in the store.
func (e *env) promote(t *testing.T, email string) {
	t.Helper()
	user, err := e.users.FindByEmailWithPassword(context.Background(), email)
	require.NoError(t, err)
	user.Role = models.RoleAdmin
	require.NoError(t, e.users.Update(context.Background(), user))
}

func TestAdminRoutesForbiddenForRegularUsers(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Ada", "ada@example.com", "pw")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/user/admin-all-users", nil)
	req.AddCookie(cookie)
	rec := e.do(t, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "user can not access this resource")
}

func TestAdminAllUsersNewestFirst(t *testing.T) {
	e := newEnv(t)
	e.registerAndActivate(t, "First", "first@example.com", "pw")
	e.registerAndActivate(t, "Second", "second@example.com", "pw")
	cookie := e.registerAndActivate(t, "Root", "root@example.com", "pw")
	e.promote(t, "root@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/user/admin-all-users", nil)
	req.AddCookie(cookie)
	rec := e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	users := body["users"].([]interface{})
	require.Len(t, users, 3)
	first := users[0].(map[string]interface{})
	assert.Equal(t, "root@example.com", first["email"])
}

func TestAdminDeleteUser(t *testing.T) {
	e := newEnv(t)
	e.registerAndActivate(t, "Victim", "victim@example.com", "pw")
	cookie := e.registerAndActivate(t, "Root", "root@example.com", "pw")
	e.promote(t, "root@example.com")

	victim, err := e.users.FindByEmail(context.Background(), "victim@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/user/delete-user/"+victim.ID.Hex(), nil)
	req.AddCookie(cookie)
	rec := e.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "User deleted successfully")

	_, err = e.users.FindByID(context.Background(), victim.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, e.media.wasDeleted(victim.Avatar.PublicID))
}

func TestAdminDeleteUnknownUser(t *testing.T) {
	e := newEnv(t)
	cookie := e.registerAndActivate(t, "Root", "root@example.com", "pw")
	e.promote(t, "root@example.com")

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/user/delete-user/"+primitive.NewObjectID().Hex(), nil)
	req.AddCookie(cookie)
	rec := e.do(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
}
