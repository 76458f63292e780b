package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupCreatesAccountAndLogsIn(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.signup("alice", "alice@example.com", "secret-password")
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	body := decodeBody(t, recorder)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, recorder.Body.String(), "passwordHash")

	// The signup response includes a session cookie; status should now
	// report authenticated.
	status := env.do(http.MethodGet, "/v1/auth/status", nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Equal(t, true, decodeBody(t, status)["authenticated"])
}

func TestSignupRejectsDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")

	recorder := env.signup("alice", "other@example.com", "secret-password")
	assert.Equal(t, http.StatusConflict, recorder.Code, recorder.Body.String())
}

func TestSignupRejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(http.MethodPost, "/v1/auth/signup", gin.H{
		"username": "bob",
		"email":    "not-an-email",
		"password": "secret-password",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")
	env.cookies = nil

	recorder := env.do(http.MethodPost, "/v1/auth/login", gin.H{
		"username": "alice",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	status := env.do(http.MethodGet, "/v1/auth/status", nil)
	assert.Equal(t, true, decodeBody(t, status)["authenticated"])

	logout := env.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, logout.Code)

	status = env.do(http.MethodGet, "/v1/auth/status", nil)
	assert.Equal(t, false, decodeBody(t, status)["authenticated"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signupUser("alice")
	env.cookies = nil

	recorder := env.do(http.MethodPost, "/v1/auth/login", gin.H{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(http.MethodPost, "/v1/auth/login", gin.H{
		"username": "nobody",
		"password": "secret-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(http.MethodPost, "/v1/quizzes/"+testQuizID+"/session", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(http.MethodGet, "/v1/enrollments", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
