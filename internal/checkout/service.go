// Package checkout turns a session's cart into a persisted order.
//
// The order is written before any stock moves. If the write fails the cart and stock are
// left exactly as they were. Once the order exists it stands: stock decrement failures
// become warnings on the result instead of errors.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/levelup-gamer/internal/cart"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/inventory"
	"github.com/joao-fontenele/levelup-gamer/internal/orders"
	"github.com/joao-fontenele/levelup-gamer/internal/pricing"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
)

var (
	tracer = otel.Tracer("checkout")
	meter  = otel.Meter("checkout")
)

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
}

// Stock is satisfied by *inventory.StockService.
type Stock interface {
	Current(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Decrement(ctx context.Context, productID string, quantity int) (inventory.StockChange, error)
}

// UserLookup reads the stored user record. *users.UserRepository satisfies it.
type UserLookup interface {
	Get(ctx context.Context, id string) (domain.User, error)
}

// Notifier publishes the order.created message. *messaging.Producer satisfies it.
type Notifier interface {
	Publish(ctx context.Context, key string, event any) error
}

type Result struct {
	Order    domain.Order            `json:"order"`
	Stock    []inventory.StockChange `json:"stock"`
	Warnings []string                `json:"warnings,omitempty"`
}

type Service struct {
	sessions session.Store
	orders   OrderStore
	stock    Stock
	users    UserLookup
	bus      events.Publisher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	inflight singleflight.Group

	ordersCounter metric.Int64Counter
	revenue       metric.Int64Counter
}

type Option func(*Service)

// WithNotifier enables the order.created message. Without it only the in-process bus is used.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(sessions session.Store, orderStore OrderStore, stock Stock, users UserLookup, bus events.Publisher, logger *slog.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		sessions: sessions,
		orders:   orderStore,
		stock:    stock,
		users:    users,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.ordersCounter, err = meter.Int64Counter("checkout.orders",
		metric.WithDescription("Orders placed through checkout"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders counter: %w", err)
	}

	s.revenue, err = meter.Int64Counter("checkout.revenue",
		metric.WithDescription("Final order totals placed through checkout"),
		metric.WithUnit("CLP"),
	)
	if err != nil {
		return nil, fmt.Errorf("create revenue counter: %w", err)
	}

	return s, nil
}

// Checkout places an order for the session's cart. Concurrent calls for the same session
// share a single execution and its result.
func (s *Service) Checkout(ctx context.Context, sessionID string, info orders.CheckoutInfo) (Result, error) {
	v, err, shared := s.inflight.Do(sessionID, func() (any, error) {
		return s.checkout(ctx, sessionID, info)
	})
	if shared {
		s.logger.Warn("duplicate checkout collapsed", "session_id", sessionID)
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) checkout(ctx context.Context, sessionID string, info orders.CheckoutInfo) (Result, error) {
	ctx, span := tracer.Start(ctx, "checkout", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	result, err := s.run(ctx, sessionID, info)
	if err != nil {
		if !domain.IsValidation(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return Result{}, err
	}

	span.SetAttributes(
		attribute.String("order.id", result.Order.ID),
		attribute.Int64("order.final_total", result.Order.FinalTotal),
		attribute.Int("checkout.warnings", len(result.Warnings)),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, sessionID string, info orders.CheckoutInfo) (Result, error) {
	shoppingCart := cart.NewStore(s.sessions, sessionID, s.bus, s.logger)

	lines, err := s.sessions.GetCart(ctx, sessionID)
	if err != nil {
		return Result{}, &domain.PersistenceError{Op: "load cart", Err: err}
	}
	if len(lines) == 0 {
		return Result{}, domain.NewValidationError("cart", "is empty")
	}

	user := s.currentUser(ctx, sessionID)

	var discount *float64
	if user != nil {
		discount = user.DiscountPercentage
		if info.RUTCliente == "" {
			info.RUTCliente = user.RUT
		}
		if info.Email == "" {
			info.Email = user.Email
		}
	}

	quote := pricing.PriceCart(lines, discount)
	if !quote.Reconciles() {
		s.logger.Warn("line totals do not reconcile with final total",
			"session_id", sessionID, "lines_total", quote.LinesTotal(), "final_total", quote.FinalTotal)
	}

	drift := s.priceDrift(ctx, lines)

	order, err := orders.Build(lines, info, quote, s.now())
	if err != nil {
		return Result{}, err
	}

	if err := s.orders.Create(ctx, &order); err != nil {
		s.logger.Error("failed to create order", "error", err, "session_id", sessionID)
		return Result{}, fmt.Errorf("create order: %w", err)
	}

	// The order exists now; the remaining steps must finish even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	result := Result{
		Order:    order,
		Stock:    make([]inventory.StockChange, 0, len(lines)),
		Warnings: drift,
	}

	for _, line := range lines {
		change, err := s.stock.Decrement(ctx, line.Product.ID, line.Quantity)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Warn("product vanished before stock decrement, skipping",
				"order_id", order.ID, "product_id", line.Product.ID)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("product %s no longer exists, stock not updated", line.Product.ID))
		case err != nil:
			s.logger.Error("failed to decrement stock", "error", err,
				"order_id", order.ID, "product_id", line.Product.ID, "quantity", line.Quantity)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("stock for product %s could not be updated", line.Product.ID))
		default:
			result.Stock = append(result.Stock, change)
			if change.Clamped {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("product %s oversold: requested %d, had %d", line.Product.ID, change.Requested, change.Previous))
			}
		}
	}

	if err := shoppingCart.Clear(ctx); err != nil {
		s.logger.Error("failed to clear cart after checkout", "error", err, "order_id", order.ID)
		result.Warnings = append(result.Warnings, "cart could not be cleared")
	}

	s.bus.Publish(events.Event{
		Kind:      events.OrderCreated,
		SessionID: sessionID,
		Payload:   map[string]any{"orderId": order.ID, "finalTotal": order.FinalTotal},
		At:        s.now(),
	})
	s.notify(ctx, order, info.Email)

	s.ordersCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("courier", string(order.Courier))))
	s.revenue.Add(ctx, order.FinalTotal)

	s.logger.Info("order placed", "order_id", order.ID, "session_id", sessionID,
		"final_total", order.FinalTotal, "warnings", len(result.Warnings))
	return result, nil
}

func (s *Service) notify(ctx context.Context, order domain.Order, email string) {
	if s.notifier == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:    order.ID,
		RUTCliente: order.RUTCliente,
		Email:      email,
		Items:      order.Items,
		FinalTotal: order.FinalTotal,
		Courier:    order.Courier,
		Timestamp:  s.now().UTC(),
	}
	if err := s.notifier.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

// currentUser resolves the session's user against the stored record so discount changes
// apply without a new login. A deleted user checks out as a guest; a failed read falls back
// to the session copy.
func (s *Service) currentUser(ctx context.Context, sessionID string) *domain.User {
	user, err := s.sessions.GetCurrentUser(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed to load current user", "error", err, "session_id", sessionID)
		return nil
	}
	if user == nil {
		return nil
	}

	stored, err := s.users.Get(ctx, user.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("session user no longer exists, checking out as guest",
			"session_id", sessionID, "user_id", user.ID)
		return nil
	case err != nil:
		s.logger.Error("failed to refresh current user, using session copy", "error", err,
			"session_id", sessionID, "user_id", user.ID)
		return user
	}
	return &stored
}

// priceDrift warns about lines whose product price changed after it was added to the cart.
// The cart price is what gets charged.
func (s *Service) priceDrift(ctx context.Context, lines []domain.CartLine) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.Product.ID)
	}

	current, err := s.stock.Current(ctx, ids)
	if err != nil {
		s.logger.Error("failed to read current products", "error", err)
		return nil
	}

	var warnings []string
	for _, line := range lines {
		p, ok := current[line.Product.ID]
		if !ok || p.Price == line.Product.Price {
			continue
		}
		s.logger.Warn("cart price differs from catalog price",
			"product_id", p.ID, "cart_price", line.Product.Price, "catalog_price", p.Price)
		warnings = append(warnings, fmt.Sprintf("price of product %s changed from %d to %d; the cart price was charged",
			p.ID, line.Product.Price, p.Price))
	}
	return warnings
}
