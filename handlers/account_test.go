package handlers

import (
	"net/http"
	"testing"

	"fabrino-server/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var adaCredentials = gin.H{"email": "ada@example.com", "password": "analytical"}

func TestLoginWithoutProfileOpensSetup(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", id, adaCredentials)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "tok", field(w, "access_token").String())
	assert.Equal(t, "u1", field(w, "session.user.id").String())
	assert.Equal(t, "setup", field(w, "session.view").String())
}

func TestLoginOnboardedStaysHome(t *testing.T) {
	env := newTestEnv(t)
	env.backend.setProfile(`{"id":"u1","first_name":"Ada","payment_method_last4":"4242","onboarding_complete":true}`)
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", id, adaCredentials)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home", field(w, "session.view").String())

	w = env.do(t, http.MethodGet, "/api/v1/profile", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", field(w, "profile.first_name").String())
	assert.Equal(t, "•••• •••• •••• 4242", field(w, "payment_method").String())
}

func TestLoginValidatesCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "not-an-email", "password": "analytical"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignUpAwaitingConfirmation(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/signup", id, gin.H{"email": "confirm@example.com", "password": "analytical"})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, gjson.Null, field(w, "session.user").Type)
}

func TestOnboardingStoresProfileAndReturnsHome(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	env.do(t, http.MethodPost, "/api/v1/auth/login", id, adaCredentials)

	w := env.do(t, http.MethodPost, "/api/v1/profile/onboarding", id, gin.H{
		"first_name":  "Ada",
		"last_name":   "Lovelace",
		"address":     "12 Analytical Row",
		"city":        "London",
		"postal_code": "N1",
		"card_number": "4242 4242 4242 4242",
		"expiry":      "12/30",
		"cvc":         "123",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, field(w, "synced").Bool())
	assert.Equal(t, "home", field(w, "session.view").String())

	patch, ok := env.backend.received("PATCH /rest/v1/profiles")
	require.True(t, ok)
	assert.Equal(t, "4242", gjson.Get(patch, "payment_method_last4").String())
	assert.True(t, gjson.Get(patch, "onboarding_complete").Bool())
	assert.False(t, gjson.Get(patch, "card_number").Exists())
}

func TestProfileRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	w := env.do(t, http.MethodGet, "/api/v1/profile", id, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/profile", id, gin.H{"first_name": "Ada"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/profile/editor", id, gin.H{"open": true})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileEditorAndSave(t *testing.T) {
	env := newTestEnv(t)
	env.backend.setProfile(`{"id":"u1","onboarding_complete":true}`)
	id := env.newSession(t)
	env.do(t, http.MethodPost, "/api/v1/auth/login", id, adaCredentials)

	w := env.do(t, http.MethodPost, "/api/v1/profile/editor", id, gin.H{"open": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, field(w, "session.profile_editor_open").Bool())

	w = env.do(t, http.MethodPost, "/api/v1/profile/editor", id, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/profile", id, gin.H{"first_name": "Ada", "city": "London"})
	require.Equal(t, http.StatusOK, w.Code)

	upsert, ok := env.backend.received("POST /rest/v1/profiles")
	require.True(t, ok)
	assert.Equal(t, "u1", gjson.Get(upsert, "id").String())
	assert.Equal(t, "London", gjson.Get(upsert, "city").String())
}

func TestLogoutClearsIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.backend.setProfile(`{"id":"u1","onboarding_complete":true}`)
	id := env.newSession(t)
	env.do(t, http.MethodPost, "/api/v1/auth/login", id, adaCredentials)
	env.do(t, http.MethodPost, "/api/v1/profile/editor", id, gin.H{"open": true})

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", id, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gjson.Null, field(w, "session.user").Type)
	assert.Equal(t, "home", field(w, "session.view").String())
	assert.False(t, field(w, "session.profile_editor_open").Bool())
	_, revoked := env.backend.received("POST /auth/v1/logout")
	assert.True(t, revoked)
}

func TestResolveSessionRestoresIdentity(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/session", id, nil, "Authorization", "Bearer returning-token")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "u1", field(w, "session.user.id").String())
	assert.Equal(t, "setup", field(w, "session.view").String())

	other := env.newSession(t)
	w = env.do(t, http.MethodPost, "/api/v1/auth/session", other, gin.H{"access_token": "stale"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gjson.Null, field(w, "session.user").Type)
}

func TestAccountRoutesWithoutBackend(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Auth = nil
		d.Profiles = services.NewProfileService(nil)
	})
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", id, adaCredentials)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/signup", id, adaCredentials)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/profile", id, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home", field(w, "session.view").String())
}

func TestMuseSuggestions(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/muse", id, gin.H{"prompt": "We met under a meteor shower"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, field(w, "enabled").Bool())
	assert.Equal(t, "Star Map", field(w, "suggestions.0.title").String())
	assert.Equal(t, "Nostalgic", field(w, "suggestions.0.sentiment").String())

	w = env.do(t, http.MethodPost, "/api/v1/muse", id, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMuseWithoutKeyReturnsEmptyList(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Muse = services.NewMuse("http://127.0.0.1:1", "", "test-model")
	})

	w := env.do(t, http.MethodPost, "/api/v1/muse", "", gin.H{"prompt": "anything"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, field(w, "enabled").Bool())
	assert.True(t, field(w, "suggestions").IsArray())
	assert.Empty(t, field(w, "suggestions").Array())
}

func TestMuseIsRateLimitedPerSession(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) { d.MusePerMin = 1 })
	id := env.newSession(t)
	body := gin.H{"prompt": "A lighthouse keeper's retirement"}

	first := env.do(t, http.MethodPost, "/api/v1/muse", id, body)
	require.Equal(t, http.StatusOK, first.Code)

	second := env.do(t, http.MethodPost, "/api/v1/muse", id, body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	other := env.do(t, http.MethodPost, "/api/v1/muse", env.newSession(t), body)
	assert.Equal(t, http.StatusOK, other.Code)
}
