package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"konnekt.org/internal/auth"
)

func testUser() *auth.User {
	return &auth.User{
		ID:        "user-1",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterIssuesSessionCookie(t *testing.T) {
	expires := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	authSvc := &stubAuth{
		register: func(_ context.Context, reg auth.Registration) (auth.LoginResult, error) {
			if reg.Email != "ada@example.com" {
				t.Fatalf("unexpected email: %q", reg.Email)
			}
			return auth.LoginResult{
				Session: auth.Session{ID: "sid", UserID: "user-1", ExpiresAt: expires},
				Token:   "raw-token",
				User:    testUser(),
			}, nil
		},
	}
	rolesSvc := &stubRoles{
		userRoles: func(_ context.Context, userID string) ([]auth.Role, error) {
			return []auth.Role{{ID: "r1", Name: "user"}}, nil
		},
	}
	h := newTestAPI(authSvc, rolesSvc, nil)

	body := `{"email":"ada@example.com","first_name":"Ada","last_name":"Lovelace","password":"secret-pass","password_confirm":"secret-pass"}`
	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if cookie.Value != "raw-token" {
		t.Fatalf("cookie carries %q, want raw token", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected SameSite: %v", cookie.SameSite)
	}
	if !cookie.Expires.Equal(expires) {
		t.Fatalf("cookie expires %v, want %v", cookie.Expires, expires)
	}

	var resp struct {
		User  *auth.User `json:"user"`
		Roles []string   `json:"roles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.User == nil || resp.User.ID != "user-1" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != "user" {
		t.Fatalf("unexpected roles: %v", resp.Roles)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	authSvc := &stubAuth{
		register: func(context.Context, auth.Registration) (auth.LoginResult, error) {
			return auth.LoginResult{}, auth.ErrAlreadyExists
		},
	}
	h := newTestAPI(authSvc, nil, nil)

	body := `{"email":"dup@example.com","first_name":"A","last_name":"B","password":"secret-pass","password_confirm":"secret-pass"}`
	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "User already exists") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRegisterValidationFields(t *testing.T) {
	authSvc := &stubAuth{
		register: func(context.Context, auth.Registration) (auth.LoginResult, error) {
			return auth.LoginResult{}, auth.FieldErrors{"email": "valid email is required"}
		},
	}
	h := newTestAPI(authSvc, nil, nil)

	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(`{"email":"nope"}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Fields["email"] == "" {
		t.Fatalf("expected email field error, got %+v", resp)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	authSvc := &stubAuth{
		login: func(context.Context, auth.Credentials) (auth.LoginResult, error) {
			return auth.LoginResult{}, auth.ErrInvalidCredentials
		},
	}
	h := newTestAPI(authSvc, nil, nil)

	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"wrong-pass"}`)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "User not found") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestLoginReplacesPresentedSession(t *testing.T) {
	var invalidated string
	authSvc := &stubAuth{
		login: func(context.Context, auth.Credentials) (auth.LoginResult, error) {
			return auth.LoginResult{
				Session: auth.Session{ID: "new-sid", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
				Token:   "new-token",
				User:    testUser(),
			}, nil
		},
		invalidate: func(_ context.Context, sessionID string) error {
			invalidated = sessionID
			return nil
		},
	}
	h := newTestAPI(authSvc, nil, nil)

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"secret-pass"}`))
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "old-token"})
	w := do(h, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if want := auth.SessionIDFromToken("old-token"); invalidated != want {
		t.Fatalf("invalidated %q, want hash of presented token", invalidated)
	}
	cookie := sessionCookie(w)
	if cookie == nil || cookie.Value != "new-token" {
		t.Fatalf("expected fresh session cookie, got %+v", cookie)
	}
}

func TestFailedLoginKeepsPresentedSession(t *testing.T) {
	invalidations := 0
	authSvc := &stubAuth{
		login: func(context.Context, auth.Credentials) (auth.LoginResult, error) {
			return auth.LoginResult{}, auth.ErrInvalidCredentials
		},
		invalidate: func(context.Context, string) error {
			invalidations++
			return nil
		},
	}
	h := newTestAPI(authSvc, nil, nil)

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"wrong-pass"}`))
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "still-valid-token"})
	w := do(h, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if invalidations != 0 {
		t.Fatalf("failed login must leave the presented session alone, got %d invalidations", invalidations)
	}
}

func TestLogoutWithoutCookieStillSucceeds(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cookie := sessionCookie(w)
	if cookie == nil || cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Fatalf("expected clearing cookie, got %+v", cookie)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	var invalidated string
	authSvc := &stubAuth{
		invalidate: func(_ context.Context, sessionID string) error {
			invalidated = sessionID
			return nil
		},
	}
	h := newTestAPI(authSvc, nil, nil)

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "some-token"})
	w := do(h, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if want := auth.SessionIDFromToken("some-token"); invalidated != want {
		t.Fatalf("invalidated %q, want hash of presented token", invalidated)
	}
}

func TestSessionIntrospection(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC()
	authSvc := &stubAuth{
		validate: func(_ context.Context, token string) (auth.Session, *auth.User, error) {
			if token != "good-token" {
				return auth.Session{}, nil, auth.ErrInvalidSession
			}
			return auth.Session{ID: "sid", UserID: "user-1", ExpiresAt: expires}, testUser(), nil
		},
	}
	rolesSvc := &stubRoles{
		principal: func(_ context.Context, user *auth.User) (auth.Principal, error) {
			return auth.NewPrincipal(user, []auth.Role{{Name: "user"}}, nil), nil
		},
	}
	h := newTestAPI(authSvc, rolesSvc, nil)

	r := httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
	w := do(h, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		User  *auth.User `json:"user"`
		Roles []string   `json:"roles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.User == nil || resp.User.ID != "user-1" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != "user" {
		t.Fatalf("unexpected roles: %v", resp.Roles)
	}
}

func TestSessionIntrospectionWithoutCookie(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	w := do(h, httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
