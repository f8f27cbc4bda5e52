package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/vovakirdan/studybud-server/internal/config"
)

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t, 0)

	form := url.Values{"username": {"Alice"}, "password1": {testPassword}, "password2": {testPassword}}
	resp := env.do(http.MethodPost, "/register", form, "")
	expectRedirect(t, resp, "/")
	cookie := sessionCookie(resp, env.cfg.CookieName)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}

	resp = env.do(http.MethodGet, "/", nil, cookie.Value)
	if !strings.Contains(resp.Body.String(), "@alice") {
		t.Fatalf("expected lowercased username in header")
	}

	resp = env.do(http.MethodGet, "/login", nil, cookie.Value)
	expectRedirect(t, resp, "/")

	resp = env.do(http.MethodGet, "/logout", nil, cookie.Value)
	expectRedirect(t, resp, "/")
	if cleared := sessionCookie(resp, env.cfg.CookieName); cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected session cookie to be cleared, got %+v", cleared)
	}

	// The old token must not authenticate once the session is gone.
	resp = env.do(http.MethodGet, "/room/create", nil, cookie.Value)
	expectRedirect(t, resp, "/login?next="+url.QueryEscape("/room/create"))

	form = url.Values{"username": {"alice"}, "password": {testPassword}}
	resp = env.do(http.MethodPost, "/login", form, "")
	expectRedirect(t, resp, "/")
	if sessionCookie(resp, env.cfg.CookieName) == nil {
		t.Fatalf("expected a new session cookie after login")
	}
}

func TestLogin_Errors(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "alice")

	resp := env.do(http.MethodPost, "/login", url.Values{"username": {"nobody"}, "password": {testPassword}}, "")
	if resp.Code != http.StatusUnauthorized || !strings.Contains(resp.Body.String(), "User does not exist") {
		t.Fatalf("expected unknown user error, got %d", resp.Code)
	}

	resp = env.do(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"wrong-pass"}}, "")
	if resp.Code != http.StatusUnauthorized || !strings.Contains(resp.Body.String(), "Username or password does not exist") {
		t.Fatalf("expected bad credentials error, got %d", resp.Code)
	}
	if sessionCookie(resp, env.cfg.CookieName) != nil {
		t.Fatalf("failed login must not set a session cookie")
	}
}

func TestLogin_Next(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "alice")

	cases := map[string]string{
		"/room/create":      "/room/create",
		"//evil.example":    "/",
		"https://evil.test": "/",
		"":                  "/",
	}
	for next, want := range cases {
		form := url.Values{"username": {"alice"}, "password": {testPassword}, "next": {next}}
		resp := env.do(http.MethodPost, "/login", form, "")
		expectRedirect(t, resp, want)
	}
}

func TestRegister_Invalid(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "alice")

	cases := []url.Values{
		{"username": {"bob"}, "password1": {testPassword}, "password2": {"other-pass"}},
		{"username": {"bob"}, "password1": {"short"}, "password2": {"short"}},
		{"username": {"bad name"}, "password1": {testPassword}, "password2": {testPassword}},
		{"username": {"alice"}, "password1": {testPassword}, "password2": {testPassword}},
	}
	for _, form := range cases {
		resp := env.do(http.MethodPost, "/register", form, "")
		if resp.Code != http.StatusBadRequest {
			t.Errorf("%v: expected status 400, got %d", form, resp.Code)
			continue
		}
		if !strings.Contains(resp.Body.String(), registrationFailed) {
			t.Errorf("%v: expected registration error message", form)
		}
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, 2)

	form := url.Values{"username": {"nobody"}, "password": {testPassword}}
	for i := 0; i < 2; i++ {
		if resp := env.do(http.MethodPost, "/login", form, ""); resp.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", i+1, resp.Code)
		}
	}
	resp := env.do(http.MethodPost, "/login", form, "")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", resp.Code)
	}
}

func loginFrom(env *testEnv, forwardedFor string) int {
	form := url.Values{"username": {"nobody"}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = "192.0.2.1:1234"

	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	return resp.Code
}

func TestLogin_RateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	env := newTestEnv(t, 2)

	codes := make([]int, 0, 6)
	for i := 1; i <= 6; i++ {
		codes = append(codes, loginFrom(env, fmt.Sprintf("10.0.0.%d", i)))
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized {
		t.Fatalf("expected the first two attempts to reach login, got %v", codes)
	}
	for _, code := range codes[2:] {
		if code != http.StatusTooManyRequests {
			t.Fatalf("rotating X-Forwarded-For must not reset the budget, got %v", codes)
		}
	}
}

func TestLogin_RateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	env := newTestEnvWithConfig(t, func(cfg *config.Config) {
		cfg.LoginRateLimit = 2
		cfg.TrustedProxies = []string{"192.0.2.1"}
	})

	for i := 1; i <= 4; i++ {
		if code := loginFrom(env, fmt.Sprintf("10.0.0.%d", i)); code != http.StatusUnauthorized {
			t.Fatalf("client %d behind the proxy should have its own budget, got %d", i, code)
		}
	}
	loginFrom(env, "10.0.0.1")
	if code := loginFrom(env, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 for a client over budget, got %d", code)
	}
}

func TestRegister_EndsPreviousSession(t *testing.T) {
	env := newTestEnv(t, 0)
	aliceToken, _ := env.register(t, "alice")

	form := url.Values{"username": {"bob"}, "password1": {testPassword}, "password2": {testPassword}}
	resp := env.do(http.MethodPost, "/register", form, aliceToken)
	expectRedirect(t, resp, "/")
	if sessionCookie(resp, env.cfg.CookieName) == nil {
		t.Fatalf("expected a session cookie for the new account")
	}

	if _, err := env.auth.Authenticate(context.Background(), aliceToken); err == nil {
		t.Fatalf("previous session must stop authenticating after registering again")
	}
}
