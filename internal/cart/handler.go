package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/pricing"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
)

type ProductGetter interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

type Handler struct {
	sessions session.Store
	products ProductGetter
	events   events.Publisher
	logger   *slog.Logger
}

func NewHandler(sessions session.Store, products ProductGetter, publisher events.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		products: products,
		events:   publisher,
		logger:   logger,
	}
}

type cartResponse struct {
	Items []domain.CartLine `json:"items"`
	Count int               `json:"count"`
	Quote pricing.Quote     `json:"quote"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	h.writeCart(w, r, store, http.StatusOK)
}

type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	store := h.store(w, r)

	product, err := h.products.Get(r.Context(), req.ProductID)
	if err != nil {
		h.handleError(w, err, "failed to get product", "product_id", req.ProductID)
		return
	}

	if err := CheckAdd(product, store.Get(r.Context()), req.Quantity); err != nil {
		h.handleError(w, err, "failed to check stock")
		return
	}

	if err := store.Add(r.Context(), product, req.Quantity); err != nil {
		h.handleError(w, err, "failed to add to cart", "session_id", store.SessionID())
		return
	}

	h.logger.Info("added to cart", "session_id", store.SessionID(), "product_id", product.ID, "quantity", req.Quantity)
	h.writeCart(w, r, store, http.StatusOK)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store := h.store(w, r)

	product, err := h.products.Get(r.Context(), productID)
	if err != nil {
		h.handleError(w, err, "failed to get product", "product_id", productID)
		return
	}

	if err := CheckQuantity(product, req.Quantity); err != nil {
		h.handleError(w, err, "failed to check stock")
		return
	}

	if err := store.SetQuantity(r.Context(), productID, req.Quantity); err != nil {
		h.handleError(w, err, "failed to update cart", "session_id", store.SessionID())
		return
	}

	h.writeCart(w, r, store, http.StatusOK)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	store := h.store(w, r)

	if err := store.Remove(r.Context(), productID); err != nil {
		h.handleError(w, err, "failed to remove from cart", "session_id", store.SessionID())
		return
	}

	h.writeCart(w, r, store, http.StatusOK)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)

	if err := store.Clear(r.Context()); err != nil {
		h.handleError(w, err, "failed to clear cart", "session_id", store.SessionID())
		return
	}

	h.writeCart(w, r, store, http.StatusOK)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) *Store {
	return NewStore(h.sessions, session.Ensure(w, r), h.events, h.logger)
}

// writeCart prices the cart with the logged-in user's discount, if any.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, store *Store, status int) {
	lines := store.Get(r.Context())

	var discount *float64
	user, err := h.sessions.GetCurrentUser(r.Context(), store.SessionID())
	if err != nil {
		h.logger.Error("failed to load current user", "error", err, "session_id", store.SessionID())
	} else if user != nil {
		discount = user.DiscountPercentage
	}

	h.writeJSON(w, status, cartResponse{
		Items: lines,
		Count: Count(lines),
		Quote: pricing.PriceCart(lines, discount),
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	default:
		h.logger.Error(msg, append([]any{"error", err}, attrs...)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
