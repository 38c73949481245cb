package inventory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

const defaultStockAttempts = 3

// StockChange describes one applied decrement. Clamped is set when the request exceeded
// the stock on hand and the result was floored at zero instead of going negative.
type StockChange struct {
	ProductID string `json:"productId"`
	Previous  int    `json:"previous"`
	New       int    `json:"new"`
	Requested int    `json:"requested"`
	Clamped   bool   `json:"clamped"`
}

type StockService struct {
	repo        *ProductRepository
	logger      *slog.Logger
	maxAttempts int
}

func NewStockService(repo *ProductRepository, logger *slog.Logger) *StockService {
	return &StockService{
		repo:        repo,
		logger:      logger,
		maxAttempts: defaultStockAttempts,
	}
}

// Decrement lowers a product's stock by quantity, never below zero. Concurrent writers are
// detected through the product version; the read-modify-write is retried on conflict.
// A missing product returns domain.ErrNotFound.
func (s *StockService) Decrement(ctx context.Context, productID string, quantity int) (StockChange, error) {
	if quantity < 0 {
		return StockChange{}, domain.NewValidationError("quantity", "must not be negative")
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		product, err := s.repo.Get(ctx, productID)
		if err != nil {
			return StockChange{}, err
		}

		next := max(0, product.Stock-quantity)
		change := StockChange{
			ProductID: productID,
			Previous:  product.Stock,
			New:       next,
			Requested: quantity,
			Clamped:   quantity > product.Stock,
		}

		updated, err := s.repo.setStock(ctx, productID, next, product.Version)
		if err == nil {
			if change.Clamped {
				s.logger.Warn("stock decrement clamped at zero",
					"product_id", productID, "stock", product.Stock, "requested", quantity)
			}
			if updated.LowStock() {
				s.logger.Warn("product below minimum stock",
					"product_id", productID, "stock", updated.Stock, "min_stock", updated.MinStock)
			}
			return change, nil
		}

		if !errors.Is(err, domain.ErrVersionConflict) {
			return StockChange{}, err
		}
		lastErr = err
		s.logger.Info("stock version conflict, retrying", "product_id", productID, "attempt", attempt)
	}

	return StockChange{}, lastErr
}

// Current reads the stored products for ids, keyed by id. Missing ids are absent from the map.
func (s *StockService) Current(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	products, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	current := make(map[string]domain.Product, len(products))
	for _, p := range products {
		current[p.ID] = p
	}
	return current, nil
}
