package cart

import (
	"context"
	"log/slog"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
)

// Store is the cart of one session. Every successful mutation saves the whole snapshot and
// then publishes events.CartUpdated.
type Store struct {
	backend   session.Store
	sessionID string
	events    events.Publisher
	logger    *slog.Logger
}

func NewStore(backend session.Store, sessionID string, publisher events.Publisher, logger *slog.Logger) *Store {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Store{
		backend:   backend,
		sessionID: sessionID,
		events:    publisher,
		logger:    logger,
	}
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// Get returns the persisted lines in insertion order, or an empty cart if they cannot be read.
func (s *Store) Get(ctx context.Context) []domain.CartLine {
	lines, err := s.backend.GetCart(ctx, s.sessionID)
	if err != nil {
		s.logger.Error("failed to load cart", "error", err, "session_id", s.sessionID)
		return []domain.CartLine{}
	}
	return lines
}

// Add merges into an existing line for the same product or appends a new one. It does not
// look at stock; callers check with CheckAdd first.
func (s *Store) Add(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}

	lines, err := s.load(ctx)
	if err != nil {
		return err
	}

	merged := false
	for i := range lines {
		if lines[i].Product.ID == product.ID {
			lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, domain.CartLine{Product: product, Quantity: quantity})
	}

	return s.save(ctx, lines)
}

// SetQuantity replaces the quantity of an existing line. Unknown products are ignored.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}

	lines, err := s.load(ctx)
	if err != nil {
		return err
	}

	for i := range lines {
		if lines[i].Product.ID == productID {
			lines[i].Quantity = quantity
			return s.save(ctx, lines)
		}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, productID string) error {
	lines, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.Product.ID != productID {
			kept = append(kept, line)
		}
	}
	return s.save(ctx, kept)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.save(ctx, []domain.CartLine{})
}

// Total is the undiscounted sum; discounts belong to pricing, which knows the user.
func (s *Store) Total(ctx context.Context) int64 {
	return Total(s.Get(ctx))
}

func (s *Store) Count(ctx context.Context) int {
	return Count(s.Get(ctx))
}

func (s *Store) load(ctx context.Context) ([]domain.CartLine, error) {
	lines, err := s.backend.GetCart(ctx, s.sessionID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load cart", Err: err}
	}
	return lines, nil
}

func (s *Store) save(ctx context.Context, lines []domain.CartLine) error {
	if err := s.backend.SaveCart(ctx, s.sessionID, lines); err != nil {
		return err
	}
	s.events.Publish(events.Event{
		Kind:      events.CartUpdated,
		SessionID: s.sessionID,
		Payload:   map[string]int{"count": Count(lines)},
	})
	return nil
}
