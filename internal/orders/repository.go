package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

type OrderRepository struct {
	store collection.Store
}

func NewOrderRepository(store collection.Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Create stores the order and fills in its id and version.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	doc, err := r.store.Create(ctx, collection.Orders, order.ID, order)
	if err != nil {
		order.ID = ""
		return err
	}

	order.Version = doc.Version
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	doc, err := r.store.Get(ctx, collection.Orders, id)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc)
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	docs, err := r.store.List(ctx, collection.Orders, collection.Query{Desc: true})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs)
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, rut string) ([]domain.Order, error) {
	docs, err := r.store.List(ctx, collection.Orders, collection.Query{
		Filter: map[string]any{"rutCliente": rut},
		Desc:   true,
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.NewValidationError("statePedido", "unknown status %q", status)
	}

	doc, err := r.store.Update(ctx, collection.Orders, id, map[string]any{"statePedido": status})
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc)
}

func (r *OrderRepository) UpdatePaymentState(ctx context.Context, id string, state domain.PaymentState) (domain.Order, error) {
	if !state.Valid() {
		return domain.Order{}, domain.NewValidationError("statePago", "unknown payment state %q", state)
	}

	doc, err := r.store.Update(ctx, collection.Orders, id, map[string]any{"statePago": state})
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc)
}

func decodeOrder(doc collection.Document) (domain.Order, error) {
	var order domain.Order
	if err := collection.Decode(doc, &order); err != nil {
		return domain.Order{}, err
	}
	order.ID = doc.ID
	order.Version = doc.Version
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return order, nil
}

func decodeOrders(docs []collection.Document) ([]domain.Order, error) {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := decodeOrder(doc)
		if err != nil {
			return nil, fmt.Errorf("orders: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}
