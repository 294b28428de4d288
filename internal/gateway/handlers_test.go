package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelikov/echogate/internal/config"
	"github.com/avelikov/echogate/internal/domain"
	"github.com/avelikov/echogate/internal/identity"
	"github.com/avelikov/echogate/internal/logging"
	"github.com/avelikov/echogate/internal/provider"
	"github.com/avelikov/echogate/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler http.Handler
	ledger  *quota.MemoryLedger
	adapter *provider.MockAdapter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ledger := quota.NewMemoryLedger(5)
	adapter := &provider.MockAdapter{ProviderName: "gemini"}

	reg := provider.NewRegistry(logging.Nop())
	reg.Register("gemini", adapter)

	gw := New(reg, ledger, logging.Nop())
	srv := NewServer(config.Defaults(), gw, ledger, logging.Nop())

	mux := http.NewServeMux()
	srv.registerRoutes(mux)

	return &testEnv{handler: mux, ledger: ledger, adapter: adapter}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- auth routes ---

func TestLoginIssuesSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/auth/login", "")
	require.Equal(t, http.StatusOK, w.Code)

	c := cookieByName(w, sessionCookie)
	require.NotNil(t, c, "login must set the session cookie")
	assert.True(t, c.HttpOnly)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["promptCount"])
	assert.Equal(t, float64(5), body["remainingPrompts"])

	exists, err := env.ledger.Exists(context.Background(), domain.Identity(c.Value))
	require.NoError(t, err)
	assert.True(t, exists, "login must create the ledger record")
}

func TestLoginEchoesExistingSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/auth/login", "",
		&http.Cookie{Name: sessionCookie, Value: "sess-existing"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "sess-existing", body["sessionId"])
	assert.Nil(t, cookieByName(w, sessionCookie), "an existing session is not reissued")
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/auth/register", `{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	c := cookieByName(w, authCookie)
	require.NotNil(t, c, "register must set the auth token cookie")
	email, err := identity.DecodeToken(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, float64(5), user["remainingPrompts"])
}

func TestRegisterInvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	for _, payload := range []string{`{"email":"not-an-email"}`, `{}`, `garbage`} {
		w := env.do("POST", "/api/auth/register", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
	}
}

func TestRegisterConflict(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/auth/register", `{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("POST", "/api/auth/register", `{"email":"alice@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthStatusAnonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/auth/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["isLoggedIn"])
}

func TestAuthStatusCountsComeFromLedger(t *testing.T) {
	env := newTestEnv(t)

	// Two prompts already spent server-side. No cookie carries counts;
	// the status must still reflect the ledger.
	for i := 0; i < 2; i++ {
		_, err := env.ledger.Increment(context.Background(), "sess-1")
		require.NoError(t, err)
	}

	w := env.do("GET", "/api/auth/status", "",
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["isLoggedIn"])
	assert.Equal(t, float64(2), body["promptCount"])
	assert.Equal(t, float64(3), body["remainingPrompts"])
}

func TestAuthUser(t *testing.T) {
	env := newTestEnv(t)

	env.do("POST", "/api/auth/register", `{"email":"bob@example.com"}`)
	token := identity.EncodeToken("bob@example.com", 1700000000000)

	w := env.do("GET", "/api/auth/user", "",
		&http.Cookie{Name: authCookie, Value: token})
	require.Equal(t, http.StatusOK, w.Code)

	user := decodeBody(t, w)["user"].(map[string]any)
	assert.Equal(t, "bob@example.com", user["email"])
}

func TestAuthUserRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/auth/user", "",
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthUserNotFound(t *testing.T) {
	env := newTestEnv(t)

	token := identity.EncodeToken("ghost@example.com", 1700000000000)
	w := env.do("GET", "/api/auth/user", "",
		&http.Cookie{Name: authCookie, Value: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- prompts ---

func TestPromptsCheckReadOnly(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		w := env.do("POST", "/api/prompts/check", "",
			&http.Cookie{Name: sessionCookie, Value: "sess-1"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	rec, err := env.ledger.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.PromptCount, "the check route must never spend quota")
}

func TestPromptsCheckAtCap(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		_, err := env.ledger.Increment(context.Background(), "sess-1")
		require.NoError(t, err)
	}

	w := env.do("POST", "/api/prompts/check", "",
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	require.Equal(t, http.StatusForbidden, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(5), body["promptCount"])
	assert.Equal(t, float64(5), body["limit"])
}

func TestPromptsCheckUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/prompts/check", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- chat ---

func TestChatSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.adapter.CompleteFunc = func(ctx context.Context, prompt, modelID string) (string, error) {
		return "echo: " + prompt, nil
	}

	w := env.do("POST", "/api/chat", `{"message":"hello","provider":"gemini"}`,
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "echo: hello", body["response"])
	assert.Equal(t, "gemini", body["provider"])
	assert.Equal(t, float64(1), body["promptCount"])
	assert.Equal(t, float64(4), body["remainingPrompts"])
}

func TestChatRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/chat", `{"message":"hello","provider":"gemini"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(domain.KindUnauthenticated), decodeBody(t, w)["kind"])
}

func TestChatQuotaExhausted(t *testing.T) {
	env := newTestEnv(t)
	cookie := &http.Cookie{Name: sessionCookie, Value: "sess-1"}

	for i := 0; i < 5; i++ {
		w := env.do("POST", "/api/chat", `{"message":"hello","provider":"gemini"}`, cookie)
		require.Equal(t, http.StatusOK, w.Code, "send %d", i+1)
	}

	w := env.do("POST", "/api/chat", `{"message":"hello","provider":"gemini"}`, cookie)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(domain.KindQuotaExceeded), decodeBody(t, w)["kind"])
}

func TestChatProviderErrorStatus(t *testing.T) {
	env := newTestEnv(t)
	env.adapter.CompleteFunc = func(ctx context.Context, prompt, modelID string) (string, error) {
		return "", &provider.ProviderError{
			Provider: "gemini",
			Kind:     domain.KindRateLimited,
			Code:     429,
			Message:  "rate limited",
		}
	}

	w := env.do("POST", "/api/chat", `{"message":"hello","provider":"gemini"}`,
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, string(domain.KindRateLimited), decodeBody(t, w)["kind"])
}

func TestChatUnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/chat", `{"message":"hello","provider":"openai"}`,
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/chat", "",
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["isLoggedIn"])
	assert.Equal(t, float64(5), body["remainingPrompts"])
}

// --- misc ---

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
