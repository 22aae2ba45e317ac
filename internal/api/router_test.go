package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/messagely/messagely/internal/core/domain"
	"github.com/messagely/messagely/internal/core/ports"
	"github.com/messagely/messagely/internal/infrastructure/http/handlers"
)

type fakeAuth struct {
	tokens   map[string]string
	register error
}

func (f *fakeAuth) Register(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
	if f.register != nil {
		return nil, f.register
	}
	return &domain.User{Username: in.Username}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (*domain.AuthToken, error) {
	return nil, domain.ErrInvalidCredentials
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (string, error) {
	if u, ok := f.tokens[token]; ok {
		return u, nil
	}
	return "", domain.ErrInvalidToken
}

type fakeUsers struct{}

func (fakeUsers) List(context.Context, string) ([]domain.UserSummary, error) {
	return []domain.UserSummary{{Username: "alice"}}, nil
}

func (fakeUsers) Get(_ context.Context, username, _ string) (*domain.User, error) {
	return &domain.User{Username: username}, nil
}

func (fakeUsers) Inbox(context.Context, string, string) ([]domain.MessageDetail, error) {
	return nil, nil
}

func (fakeUsers) Outbox(context.Context, string, string) ([]domain.MessageDetail, error) {
	return nil, nil
}

type fakeMessages struct {
	getErr error
}

func (f *fakeMessages) Send(context.Context, ports.SendMessageInput) (*ports.SendMessageResult, error) {
	return nil, errors.New("database exploded: secret detail")
}

func (f *fakeMessages) GetMessage(context.Context, int64, string) (*domain.MessageDetail, error) {
	return nil, f.getErr
}

func (f *fakeMessages) MarkRead(context.Context, int64, string) (*domain.Message, error) {
	return nil, domain.ErrForbidden
}

func newTestRouter(t *testing.T, auth *fakeAuth, msgs *fakeMessages) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Auth:     auth,
		Users:    fakeUsers{},
		Messages: msgs,
		Readiness: map[string]handlers.PingFunc{
			"store": func(context.Context) error { return nil },
		},
		Log:        zerolog.Nop(),
		Registerer: prometheus.NewRegistry(),
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestRouter_StatusMapping(t *testing.T) {
	auth := &fakeAuth{tokens: map[string]string{"alice-token": "alice"}}
	msgs := &fakeMessages{getErr: domain.ErrMessageNotFound}
	h := newTestRouter(t, auth, msgs)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     string
		wantCode int
		wantErr  string
	}{
		{"login failure", http.MethodPost, "/auth/login", "", `{"username":"x","password":"y"}`, http.StatusUnauthorized, "invalid credentials"},
		{"no token", http.MethodGet, "/users", "", "", http.StatusUnauthorized, "missing authorization header"},
		{"bad token", http.MethodGet, "/users", "nope", "", http.StatusUnauthorized, "invalid token"},
		{"list users", http.MethodGet, "/users", "alice-token", "", http.StatusOK, ""},
		{"own detail", http.MethodGet, "/users/alice", "alice-token", "", http.StatusOK, ""},
		{"other user detail", http.MethodGet, "/users/bob", "alice-token", "", http.StatusForbidden, "access forbidden"},
		{"other user inbox", http.MethodGet, "/users/bob/to", "alice-token", "", http.StatusForbidden, "access forbidden"},
		{"other user outbox", http.MethodGet, "/users/bob/from", "alice-token", "", http.StatusForbidden, "access forbidden"},
		{"missing message", http.MethodGet, "/messages/9", "alice-token", "", http.StatusNotFound, "message not found"},
		{"mark read forbidden", http.MethodPost, "/messages/9/read", "alice-token", "", http.StatusForbidden, "access forbidden"},
		{"unexpected error hidden", http.MethodPost, "/messages", "alice-token", `{"to_username":"bob","body":"hi"}`, http.StatusInternalServerError, "internal server error"},
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound, ""},
		{"liveness", http.MethodGet, "/health", "", "", http.StatusOK, ""},
		{"readiness", http.MethodGet, "/health/ready", "", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, h, tt.method, tt.path, tt.token, tt.body)
			if code != tt.wantCode {
				t.Fatalf("expected %d, got %d (%v)", tt.wantCode, code, body)
			}
			if tt.wantErr != "" && body["error"] != tt.wantErr {
				t.Fatalf("expected error %q, got %v", tt.wantErr, body["error"])
			}
		})
	}
}

func TestRouter_RegisterConflict(t *testing.T) {
	h := newTestRouter(t, &fakeAuth{register: domain.ErrUserExists}, &fakeMessages{})

	body := `{"username":"carol","password":"pw","first_name":"C","last_name":"C","phone":"1"}`
	code, resp := do(t, h, http.MethodPost, "/auth/register", "", body)
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if resp["error"] != "user already exists" {
		t.Fatalf("unexpected error body: %v", resp)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &fakeAuth{}, &fakeMessages{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "messagely_") {
		t.Fatal("expected messagely metrics to be exposed")
	}
}
