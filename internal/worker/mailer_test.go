package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/email"
	"github.com/joao-fontenele/levelup-gamer/internal/messaging"
)

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func newTestMailer(sender Sender) *OrderMailer {
	return NewOrderMailer(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func orderEvent(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(domain.OrderCreatedEvent{
		OrderID:    "order-1",
		RUTCliente: "12.345.678-5",
		Email:      "ana@duocuc.cl",
		Items: []domain.OrderItem{
			{Name: "Catan", Quantity: 2, SubTotal: 59980, DiscountPercentage: 0.2, Total: 47984},
		},
		FinalTotal: 47984,
		Courier:    domain.CourierShipping,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func TestOrderMailer_SendsConfirmation(t *testing.T) {
	sender := &fakeSender{}

	if err := newTestMailer(sender).Handle(context.Background(), orderEvent(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "ana@duocuc.cl" {
		t.Errorf("unexpected recipient %s", msg.To)
	}
	if !strings.Contains(msg.Subject, "order-1") {
		t.Errorf("unexpected subject %s", msg.Subject)
	}
	for _, want := range []string{"Catan x2: $47.984", "Total pagado: $47.984", "despachado"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestOrderMailer_Errors(t *testing.T) {
	tests := []struct {
		name          string
		payload       []byte
		sendErr       error
		wantErr       bool
		wantPermanent bool
	}{
		{"malformed payload", []byte(`{`), nil, true, true},
		{"no email", []byte(`{"order_id":"o1"}`), nil, false, false},
		{"mailer rejects", nil, &email.StatusError{Code: http.StatusBadRequest}, true, true},
		{"mailer down", nil, &email.StatusError{Code: http.StatusServiceUnavailable}, true, false},
		{"network", nil, errors.New("connection refused"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := tt.payload
			if payload == nil {
				payload = orderEvent(t)
			}

			err := newTestMailer(&fakeSender{err: tt.sendErr}).Handle(context.Background(), payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if messaging.IsPermanent(err) != tt.wantPermanent {
				t.Errorf("permanent = %v, want %v", messaging.IsPermanent(err), tt.wantPermanent)
			}
		})
	}
}

func TestFormatCLP(t *testing.T) {
	tests := map[int64]string{
		0:       "$0",
		999:     "$999",
		16000:   "$16.000",
		1299990: "$1.299.990",
		-4000:   "-$4.000",
	}
	for in, want := range tests {
		if got := FormatCLP(in); got != want {
			t.Errorf("FormatCLP(%d) = %q, want %q", in, got, want)
		}
	}
}
