package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

type Handler struct {
	repo   *OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(repo *OrderRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "failed to get order", "order_id", id)
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

// HandleList serves all orders, or one customer's with ?rut=, filtered by ?q=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		orders []domain.Order
		err    error
	)
	if rut := r.URL.Query().Get("rut"); rut != "" {
		orders, err = h.repo.ListByCustomer(r.Context(), rut)
	} else {
		orders, err = h.repo.List(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	orders = Search(orders, r.URL.Query().Get("q"))

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

// HandleCustomerOrders is the storefront's order history; ?rut= is mandatory.
func (h *Handler) HandleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	rut := r.URL.Query().Get("rut")
	if rut == "" {
		h.writeError(w, http.StatusBadRequest, "missing rut")
		return
	}
	h.HandleList(w, r)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"statePedido"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleError(w, err, "failed to update order status", "order_id", id)
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

type updatePaymentRequest struct {
	State domain.PaymentState `json:"statePago"`
}

func (h *Handler) HandleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.repo.UpdatePaymentState(r.Context(), id, req.State)
	if err != nil {
		h.handleError(w, err, "failed to update payment state", "order_id", id)
		return
	}

	h.logger.Info("payment state updated", "order_id", order.ID, "state", order.PaymentState)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleSales(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders for sales", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, Sales(orders, h.now()))
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrVersionConflict):
		h.writeError(w, http.StatusConflict, "order was modified concurrently")
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
