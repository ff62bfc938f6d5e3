package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"

	"konnekt.org/internal/auth"
	"konnekt.org/internal/events"
)

type stubAuth struct {
	register   func(context.Context, auth.Registration) (auth.LoginResult, error)
	login      func(context.Context, auth.Credentials) (auth.LoginResult, error)
	validate   func(context.Context, string) (auth.Session, *auth.User, error)
	invalidate func(context.Context, string) error
}

func (s *stubAuth) Register(ctx context.Context, reg auth.Registration) (auth.LoginResult, error) {
	return s.register(ctx, reg)
}

func (s *stubAuth) Login(ctx context.Context, creds auth.Credentials) (auth.LoginResult, error) {
	return s.login(ctx, creds)
}

func (s *stubAuth) ValidateSessionToken(ctx context.Context, token string) (auth.Session, *auth.User, error) {
	if s.validate == nil {
		return auth.Session{}, nil, auth.ErrInvalidSession
	}
	return s.validate(ctx, token)
}

func (s *stubAuth) InvalidateSession(ctx context.Context, sessionID string) error {
	if s.invalidate == nil {
		return nil
	}
	return s.invalidate(ctx, sessionID)
}

type stubRoles struct {
	principal func(context.Context, *auth.User) (auth.Principal, error)
	userRoles func(context.Context, string) ([]auth.Role, error)
	assign    func(context.Context, string, string) error
	setPerms  func(context.Context, string, []string) error
}

func (s *stubRoles) Principal(ctx context.Context, user *auth.User) (auth.Principal, error) {
	if s.principal == nil {
		return auth.NewPrincipal(user, nil, nil), nil
	}
	return s.principal(ctx, user)
}

func (s *stubRoles) UserRoles(ctx context.Context, userID string) ([]auth.Role, error) {
	if s.userRoles == nil {
		return nil, nil
	}
	return s.userRoles(ctx, userID)
}

func (s *stubRoles) AssignRole(ctx context.Context, userID, roleName string) error {
	return s.assign(ctx, userID, roleName)
}

func (s *stubRoles) SetRolePermissions(ctx context.Context, roleID string, keys []string) error {
	return s.setPerms(ctx, roleID, keys)
}

type stubEvents struct {
	create func(context.Context, events.NewEvent) (events.Event, error)
	find   func(context.Context, string) (events.Event, error)
	list   func(context.Context, int) ([]events.Event, error)
	remove func(context.Context, string) error
}

func (s *stubEvents) Create(ctx context.Context, in events.NewEvent) (events.Event, error) {
	return s.create(ctx, in)
}

func (s *stubEvents) Find(ctx context.Context, id string) (events.Event, error) {
	return s.find(ctx, id)
}

func (s *stubEvents) List(ctx context.Context, limit int) ([]events.Event, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx, limit)
}

func (s *stubEvents) Delete(ctx context.Context, id string) error {
	return s.remove(ctx, id)
}

func newTestAPI(authSvc AuthService, roleSvc RoleService, eventSvc EventService) http.Handler {
	if authSvc == nil {
		authSvc = &stubAuth{}
	}
	if roleSvc == nil {
		roleSvc = &stubRoles{}
	}
	if eventSvc == nil {
		eventSvc = &stubEvents{}
	}
	api := New(Config{
		Auth:    authSvc,
		Roles:   roleSvc,
		Events:  eventSvc,
		Version: "test",
	})
	return api.Handler()
}

func do(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
