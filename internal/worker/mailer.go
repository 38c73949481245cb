// Package worker reacts to order.created messages by emailing the customer a receipt.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/email"
	"github.com/joao-fontenele/levelup-gamer/internal/messaging"
)

type Sender interface {
	Send(ctx context.Context, m email.Message) error
}

type OrderMailer struct {
	sender Sender
	logger *slog.Logger
}

func NewOrderMailer(sender Sender, logger *slog.Logger) *OrderMailer {
	return &OrderMailer{
		sender: sender,
		logger: logger,
	}
}

// Handle is a messaging.Handler. Payloads that cannot be decoded and rejections by the
// mailer are permanent; transport failures are returned for redelivery.
func (m *OrderMailer) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal order created event: %w", err))
	}

	m.logger.Info("processing order created event", "order_id", event.OrderID, "rut_cliente", event.RUTCliente)

	if event.Email == "" {
		m.logger.Warn("order has no contact email, skipping confirmation", "order_id", event.OrderID)
		return nil
	}

	err := m.sender.Send(ctx, ConfirmationEmail(event))
	var statusErr *email.StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError:
		return messaging.Permanent(fmt.Errorf("send confirmation email: %w", err))
	default:
		m.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	m.logger.Info("order confirmation sent", "order_id", event.OrderID)
	return nil
}

func ConfirmationEmail(event domain.OrderCreatedEvent) email.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Gracias por tu compra en Level-Up Gamer!\n\nPedido: %s\n\n", event.OrderID)
	for _, item := range event.Items {
		fmt.Fprintf(&b, "- %s x%d: %s\n", item.Name, item.Quantity, FormatCLP(item.Total))
	}
	fmt.Fprintf(&b, "\nTotal pagado: %s\n", FormatCLP(event.FinalTotal))

	if event.Courier == domain.CourierPickup {
		b.WriteString("Te avisaremos cuando tu pedido esté listo para retiro en tienda.\n")
	} else {
		b.WriteString("Te avisaremos cuando tu pedido sea despachado.\n")
	}

	return email.Message{
		To:      event.Email,
		Subject: "Confirmación de pedido " + event.OrderID,
		Body:    b.String(),
	}
}

// FormatCLP renders whole pesos with dot thousands separators: 16000 becomes "$16.000".
func FormatCLP(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String()
}
