package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/auth"
	"github.com/vovakirdan/studybud-server/internal/authz"
	"github.com/vovakirdan/studybud-server/internal/config"
	"github.com/vovakirdan/studybud-server/internal/service/rooms"
	"github.com/vovakirdan/studybud-server/internal/store/sqlite"
)

const testPassword = "s3cret-pass"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	auth   *auth.Service
	rooms  *rooms.Service
	store  *sqlite.SQLiteStore
	cfg    config.Config
}

// newTestEnv wires the router against an in-memory store.
func newTestEnv(t *testing.T, loginRateLimit int) *testEnv {
	t.Helper()

	return newTestEnvWithConfig(t, func(cfg *config.Config) {
		cfg.LoginRateLimit = loginRateLimit
	})
}

// newTestEnvWithConfig is newTestEnv with arbitrary config tweaks.
func newTestEnvWithConfig(t *testing.T, configure func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	configure(&cfg)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	roomService := rooms.New(st)

	disabledLogger := zerolog.New(nil)

	return &testEnv{
		router: NewRouter(authService, roomService, &cfg, &disabledLogger),
		auth:   authService,
		rooms:  roomService,
		store:  st,
		cfg:    cfg,
	}
}

// register creates a user and returns its session token and principal.
func (e *testEnv) register(t *testing.T, username string) (string, *authz.Principal) {
	t.Helper()

	token, err := e.auth.Register(context.Background(), username, testPassword, testPassword)
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	claims, err := e.auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("failed to authenticate %s: %v", username, err)
	}
	return token, &authz.Principal{UserID: claims.UserID, Username: claims.Username, SessionID: claims.ID}
}

// do sends a request through the router. A non-nil form is sent url-encoded.
func (e *testEnv) do(method, target string, form url.Values, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: e.cfg.CookieName, Value: token})
	}

	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func sessionCookie(resp *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func expectRedirect(t *testing.T, resp *httptest.ResponseRecorder, location string) {
	t.Helper()

	if resp.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}
