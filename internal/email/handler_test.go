package email

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*Handler, *httptest.Server) {
	t.Helper()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), 0)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", handler.HandleSend)
	mux.HandleFunc("GET /outbox", handler.HandleOutbox)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return handler, server
}

func TestClient_Send(t *testing.T) {
	_, server := newTestServer(t)
	client := NewClient(server.URL, server.Client())

	err := client.Send(context.Background(), Message{To: "ana@duocuc.cl", Subject: "Hola", Body: "Gracias"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = client.Send(context.Background(), Message{To: "ana@duocuc.cl", Subject: "Otra", Body: "Más"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := server.Client().Get(server.URL + "/outbox?limit=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var sent []SentMessage
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(sent) != 1 || sent[0].Subject != "Otra" {
		t.Errorf("expected newest message only, got %+v", sent)
	}
}

func TestClient_SendRejected(t *testing.T) {
	_, server := newTestServer(t)
	client := NewClient(server.URL, server.Client())

	err := client.Send(context.Background(), Message{To: "not-an-email", Subject: "Hola", Body: "x"})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest {
		t.Errorf("expected status error 400, got %v", err)
	}
}

func TestHandler_OutboxBounded(t *testing.T) {
	handler, _ := newTestServer(t)
	for i := 0; i < outboxSize+10; i++ {
		handler.record(Message{To: "a@b.cl", Subject: "s", Body: "b"})
	}
	if len(handler.outbox) != outboxSize {
		t.Errorf("expected outbox capped at %d, got %d", outboxSize, len(handler.outbox))
	}
}

func TestHandler_OutboxBadLimit(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.HandleOutbox(rec, httptest.NewRequest(http.MethodGet, "/outbox?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
