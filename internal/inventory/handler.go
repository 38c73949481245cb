package inventory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

type Handler struct {
	repo   *ProductRepository
	stock  *StockService
	logger *slog.Logger
}

func NewHandler(repo *ProductRepository, stock *StockService, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		stock:  stock,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ProductFilter{Category: domain.Category(r.URL.Query().Get("category"))}

	products, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

// HandleCatalog is the storefront listing: a failed read degrades to an empty catalog.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	filter := ProductFilter{Category: domain.Category(r.URL.Query().Get("category"))}

	products, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list catalog, serving empty result", "error", err)
		products = []domain.Product{}
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "failed to get product", "product_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.repo.Create(r.Context(), req)
	if err != nil {
		h.handleError(w, err, "failed to create product")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.repo.Update(r.Context(), id, req)
	if err != nil {
		h.handleError(w, err, "failed to update product", "product_id", id)
		return
	}

	h.logger.Info("product updated", "product_id", product.ID)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.handleError(w, err, "failed to delete product", "product_id", id)
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.LowStock(r.Context())
	if err != nil {
		h.logger.Error("failed to list low stock products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

type decrementRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleDecrement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req decrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	change, err := h.stock.Decrement(r.Context(), id, req.Quantity)
	if err != nil {
		h.handleError(w, err, "failed to decrement stock", "product_id", id, "quantity", req.Quantity)
		return
	}

	h.logger.Info("stock decremented", "product_id", id, "quantity", req.Quantity, "stock", change.New)
	h.writeJSON(w, http.StatusOK, change)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrVersionConflict):
		h.writeError(w, http.StatusConflict, "product was modified concurrently")
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
