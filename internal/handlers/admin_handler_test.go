package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promoteToAdmin flips the admin flag on the named account directly in the
// store, bypassing the HTTP surface.
func promoteToAdmin(t *testing.T, env *testEnv, username string) {
	t.Helper()
	user, err := env.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NoError(t, env.users.SetAdmin(context.Background(), user.HexID(), true))
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")

	recorder := env.do(http.MethodGet, "/v1/admin/userz", nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAdminRoutesRejectAnonymous(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(http.MethodGet, "/v1/admin/userz", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAdminListsUsers(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("admin")
	promoteToAdmin(t, env, "admin")

	recorder := env.do(http.MethodGet, "/v1/admin/userz", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	users := decodeBody(t, recorder)["users"].([]interface{})
	require.Len(t, users, 1)
	user := users[0].(map[string]interface{})
	assert.Equal(t, "admin", user["username"])
	assert.Equal(t, true, user["is_admin"])
}

func TestAdminDeletesUser(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")
	aliceCookies := env.cookies

	env.cookies = nil
	env.signupUser("admin")
	promoteToAdmin(t, env, "admin")

	alice, err := env.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	recorder := env.do(http.MethodDelete, "/v1/admin/userz/"+alice.HexID(), nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	// Alice's session now resolves to a missing account.
	env.cookies = aliceCookies
	status := env.do(http.MethodGet, "/v1/auth/status", nil)
	assert.Equal(t, false, decodeBody(t, status)["authenticated"])
}

func TestAdminResetsPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")

	env.cookies = nil
	env.signupUser("admin")
	promoteToAdmin(t, env, "admin")

	alice, err := env.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	recorder := env.do(http.MethodPost, "/v1/admin/userz/"+alice.HexID()+"/reset-password", gin.H{
		"new_password": "brand-new-password",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	env.cookies = nil
	login := env.do(http.MethodPost, "/v1/auth/login", gin.H{
		"username": "alice",
		"password": "brand-new-password",
	})
	assert.Equal(t, http.StatusOK, login.Code, login.Body.String())
}

func TestAdminInspectsUserRecords(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")
	walkSession(t, env, []string{"right", "right"})

	alice, err := env.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	env.cookies = nil
	env.signupUser("admin")
	promoteToAdmin(t, env, "admin")

	recorder := env.do(http.MethodGet, "/v1/admin/userz/"+alice.HexID()+"/records", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	records := decodeBody(t, recorder)["records"].(map[string]interface{})
	require.Contains(t, records, testQuizID)
}

func TestAdminConfigzRedactsSecrets(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("admin")
	promoteToAdmin(t, env, "admin")

	recorder := env.do(http.MethodGet, "/v1/admin/configz", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	assert.NotContains(t, recorder.Body.String(), "test-session-secret")
	assert.Contains(t, recorder.Body.String(), "[redacted]")
}
