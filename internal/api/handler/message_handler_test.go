package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/messagely/messagely/internal/core/domain"
	"github.com/messagely/messagely/internal/core/ports"
)

type stubMessageService struct {
	sendFn     func(ctx context.Context, in ports.SendMessageInput) (*ports.SendMessageResult, error)
	getFn      func(ctx context.Context, id int64, requester string) (*domain.MessageDetail, error)
	markReadFn func(ctx context.Context, id int64, requester string) (*domain.Message, error)
}

func (s *stubMessageService) Send(ctx context.Context, in ports.SendMessageInput) (*ports.SendMessageResult, error) {
	return s.sendFn(ctx, in)
}

func (s *stubMessageService) GetMessage(ctx context.Context, id int64, requester string) (*domain.MessageDetail, error) {
	return s.getFn(ctx, id, requester)
}

func (s *stubMessageService) MarkRead(ctx context.Context, id int64, requester string) (*domain.Message, error) {
	return s.markReadFn(ctx, id, requester)
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestMessageHandler_Send_UsesCallerAsSender(t *testing.T) {
	e := newEcho()
	stub := &stubMessageService{
		sendFn: func(_ context.Context, in ports.SendMessageInput) (*ports.SendMessageResult, error) {
			if in.FromUsername != "alice" || in.ToUsername != "bob" || in.Body != "hi" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.IdempotencyKey != "key-1" {
				t.Fatalf("idempotency key not forwarded: %q", in.IdempotencyKey)
			}
			return &ports.SendMessageResult{Message: &domain.Message{ID: 1, FromUsername: "alice", ToUsername: "bob", Body: "hi"}}, nil
		},
	}

	req := jsonRequest(http.MethodPost, "/messages", `{"to_username":"bob","body":"hi","from_username":"mallory"}`)
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "alice")

	if err := NewMessageHandler(stub).Send(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"]["from_username"] != "alice" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}

func TestMessageHandler_Send_ReplayReturns200(t *testing.T) {
	e := newEcho()
	stub := &stubMessageService{
		sendFn: func(context.Context, ports.SendMessageInput) (*ports.SendMessageResult, error) {
			return &ports.SendMessageResult{Message: &domain.Message{ID: 1}, AlreadyExisted: true}, nil
		},
	}

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/messages", `{"to_username":"bob","body":"hi"}`), rec, "alice")

	if err := NewMessageHandler(stub).Send(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMessageHandler_Send_Validation(t *testing.T) {
	e := newEcho()
	c := authedContext(e, jsonRequest(http.MethodPost, "/messages", `{"to_username":"bob"}`), httptest.NewRecorder(), "alice")

	err := NewMessageHandler(&stubMessageService{}).Send(c)
	if code := httpStatus(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestMessageHandler_Get(t *testing.T) {
	sent := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := newEcho()
	stub := &stubMessageService{
		getFn: func(_ context.Context, id int64, requester string) (*domain.MessageDetail, error) {
			if id != 7 || requester != "bob" {
				t.Fatalf("unexpected args %d %q", id, requester)
			}
			return &domain.MessageDetail{
				Message: domain.Message{ID: 7, FromUsername: "alice", ToUsername: "bob", Body: "hi", SentAt: sent},
				From:    domain.UserContact{Username: "alice", Phone: "1"},
				To:      domain.UserContact{Username: "bob", Phone: "2"},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	c := withID(authedContext(e, httptest.NewRequest(http.MethodGet, "/messages/7", nil), rec, "bob"), "7")

	if err := NewMessageHandler(stub).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	msg := resp["message"]
	from, _ := msg["from_user"].(map[string]any)
	to, _ := msg["to_user"].(map[string]any)
	if from["username"] != "alice" || to["username"] != "bob" {
		t.Fatalf("expected both parties, got %v", msg)
	}
}

func TestMessageHandler_Get_InvalidID(t *testing.T) {
	e := newEcho()
	for _, id := range []string{"abc", "0", "-3"} {
		c := withID(authedContext(e, httptest.NewRequest(http.MethodGet, "/messages/"+id, nil), httptest.NewRecorder(), "bob"), id)
		err := NewMessageHandler(&stubMessageService{}).Get(c)
		if code := httpStatus(t, err); code != http.StatusBadRequest {
			t.Fatalf("id %q: expected 400, got %d", id, code)
		}
	}
}

func TestMessageHandler_Get_PropagatesForbidden(t *testing.T) {
	e := newEcho()
	stub := &stubMessageService{
		getFn: func(context.Context, int64, string) (*domain.MessageDetail, error) {
			return nil, domain.ErrForbidden
		},
	}

	c := withID(authedContext(e, httptest.NewRequest(http.MethodGet, "/messages/1", nil), httptest.NewRecorder(), "carol"), "1")
	if err := NewMessageHandler(stub).Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestMessageHandler_MarkRead(t *testing.T) {
	readAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	e := newEcho()
	stub := &stubMessageService{
		markReadFn: func(_ context.Context, id int64, requester string) (*domain.Message, error) {
			if id != 7 || requester != "bob" {
				t.Fatalf("unexpected args %d %q", id, requester)
			}
			return &domain.Message{ID: 7, Body: "hi", ReadAt: &readAt}, nil
		},
	}

	rec := httptest.NewRecorder()
	c := withID(authedContext(e, httptest.NewRequest(http.MethodPost, "/messages/7/read", nil), rec, "bob"), "7")

	if err := NewMessageHandler(stub).MarkRead(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	msg := resp["message"]
	if len(msg) != 2 || msg["id"] != float64(7) || msg["read_at"] != "2024-03-01T10:00:00Z" {
		t.Fatalf("expected {id, read_at}, got %v", msg)
	}
}
