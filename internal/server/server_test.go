package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/daily-diet/internal/auth"
	"github.com/sakif/daily-diet/internal/config"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Server.Port = 8080
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "test-secret-at-least-16-chars!!"
	cfg.Auth.BcryptCost = 4
	return cfg
}

// newTestServer starts the full stack on an in-memory database.
func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(cfg, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

// client is a browser stand-in: it keeps cookies between requests.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

func (c *client) register(name, email string) {
	c.t.Helper()
	status, _ := c.do(http.MethodPost, "/users", `{"name":"`+name+`","email":"`+email+`","password":"pw"}`)
	require.Equal(c.t, http.StatusCreated, status)
}

func (c *client) login(email string) string {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/users/login", `{"email":"`+email+`","password":"pw"}`)
	require.Equal(c.t, http.StatusOK, status)
	return body["userId"].(string)
}

func (c *client) addMeal(name string, diet bool) {
	c.t.Helper()
	d := "false"
	if diet {
		d = "true"
	}
	status, _ := c.do(http.MethodPost, "/meals",
		`{"name":"`+name+`","description":"","eaten_at":"2024-05-01T12:00","diet":`+d+`}`)
	require.Equal(c.t, http.StatusCreated, status)
}

func (c *client) mealIDs() []string {
	c.t.Helper()
	status, body := c.do(http.MethodGet, "/meals", "")
	require.Equal(c.t, http.StatusOK, status)
	var ids []string
	for _, m := range body["meals"].([]any) {
		ids = append(ids, m.(map[string]any)["id"].(string))
	}
	return ids
}

func (c *client) summary() map[string]any {
	c.t.Helper()
	status, body := c.do(http.MethodGet, "/meals/summary", "")
	require.Equal(c.t, http.StatusOK, status)
	rows := body["meals"].([]any)
	require.Len(c.t, rows, 1)
	return rows[0].(map[string]any)
}

// =========================================================================
// END-TO-END
// =========================================================================

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig())
	status, body := newClient(t, ts).do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestMealsRequireSession(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t, ts)

	for _, path := range []string{"/meals", "/meals/summary", "/users/me"} {
		status, body := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "unauthorized", body["error"], path)
	}
}

// A forged cookie holding someone's bare user id is not a session.
func TestForgedCookieRejected(t *testing.T) {
	ts := newTestServer(t, testConfig())
	victim := newClient(t, ts)
	victim.register("Ana", "ana@example.com")
	victimID := victim.login("ana@example.com")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/meals", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: victimID})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDiaryFlow(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t, ts)

	c.register("Ana", "ana@example.com")
	userID := c.login("ana@example.com")

	// No meals yet: one zero-filled summary row.
	assert.Equal(t, map[string]any{
		"user_id": userID, "best_sequence": 0.0, "total_meals": 0.0, "in_diet": 0.0, "out_diet": 0.0,
	}, c.summary())

	for i, d := range []bool{true, true, false, true, true, true, false, true} {
		c.addMeal("meal "+string(rune('a'+i)), d)
	}

	sum := c.summary()
	assert.Equal(t, 3.0, sum["best_sequence"])
	assert.Equal(t, 8.0, sum["total_meals"])
	assert.Equal(t, 6.0, sum["in_diet"])
	assert.Equal(t, 2.0, sum["out_diet"])

	ids := c.mealIDs()
	require.Len(t, ids, 8)

	// Flip the breaker between the 2-run and the 3-run: 2 + 1 + 3 = 6.
	status, body := c.do(http.MethodPut, "/meals/"+ids[2], `{"diet":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Updated", body["message"])
	assert.Equal(t, 6.0, c.summary()["best_sequence"])

	// Clearing a description with "" is applied, not ignored.
	status, _ = c.do(http.MethodPut, "/meals/"+ids[0], `{"description":"notes"}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = c.do(http.MethodPut, "/meals/"+ids[0], `{"description":""}`)
	require.Equal(t, http.StatusOK, status)
	status, body = c.do(http.MethodGet, "/meals/"+ids[0], "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "", body["meal"].(map[string]any)["description"])

	// Delete the last off-diet meal; the remaining run joins up.
	status, body = c.do(http.MethodDelete, "/meals/"+ids[6], "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Deleted", body["message"])
	sum = c.summary()
	assert.Equal(t, 7.0, sum["best_sequence"])
	assert.Equal(t, 7.0, sum["total_meals"])

	status, body = c.do(http.MethodGet, "/meals/"+ids[6], "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["meal"])

	status, _ = c.do(http.MethodGet, "/meals/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOwnershipIsolation(t *testing.T) {
	ts := newTestServer(t, testConfig())

	alice := newClient(t, ts)
	alice.register("Alice", "alice@example.com")
	alice.login("alice@example.com")
	alice.addMeal("salad", true)
	aliceMeal := alice.mealIDs()[0]

	bob := newClient(t, ts)
	bob.register("Bob", "bob@example.com")
	bob.login("bob@example.com")

	assert.Empty(t, bob.mealIDs(), "bob must not see alice's meals")

	status, body := bob.do(http.MethodGet, "/meals/"+aliceMeal, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["meal"])

	status, _ = bob.do(http.MethodPut, "/meals/"+aliceMeal, `{"name":"stolen","diet":false}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = bob.do(http.MethodDelete, "/meals/"+aliceMeal, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = alice.do(http.MethodGet, "/meals/"+aliceMeal, "")
	require.Equal(t, http.StatusOK, status)
	meal := body["meal"].(map[string]any)
	assert.Equal(t, "salad", meal["name"])
	assert.Equal(t, true, meal["diet"])
}

func TestRegistrationAndLogin(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t, ts)

	c.register("Ana", "ana@example.com")

	status, body := c.do(http.MethodPost, "/users", `{"name":"Imposter","email":"ana@example.com","password":"x"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body["error"])

	status, body = c.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, status)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "password_hash")

	status, _ = c.do(http.MethodPost, "/users/login", `{"email":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, status, "failed login must not sign in")

	userID := c.login("ana@example.com")
	status, body = c.do(http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, body["user"].(map[string]any)["id"])
}

func TestLoginDoesNotReissueCookie(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t, ts)
	c.register("Ana", "ana@example.com")
	c.login("ana@example.com")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/users/login",
		strings.NewReader(`{"email":"ana@example.com","password":"pw"}`))
	for _, ck := range c.http.Jar.Cookies(req.URL) {
		req.AddCookie(ck)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t, ts)
	c.register("Ana", "ana@example.com")
	c.login("ana@example.com")

	// Keep a copy of the cookie, as an attacker who stole it would.
	u := ts.URL + "/meals"
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	stolen := c.http.Jar.Cookies(req.URL)
	require.NotEmpty(t, stolen)

	status, body := c.do(http.MethodPost, "/users/logout", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out", body["message"])

	status, _ = c.do(http.MethodGet, "/meals", "")
	assert.Equal(t, http.StatusUnauthorized, status, "cookie should be cleared")

	for _, ck := range stolen {
		req.AddCookie(ck)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked token must be rejected")
}

func TestGitHubRoutesOnlyWhenConfigured(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t, ts)
	c.http.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	status, _ := c.do(http.MethodGet, "/users/github/login", "")
	assert.Equal(t, http.StatusNotFound, status)

	cfg := testConfig()
	cfg.GitHub.ClientID = "id"
	cfg.GitHub.ClientSecret = "secret"
	cfg.GitHub.CallbackURL = "http://localhost:8080/users/github/callback"
	ts = newTestServer(t, cfg)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/users/github/login", nil)
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "github.com/login/oauth/authorize")
}

func TestNew_BadRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
