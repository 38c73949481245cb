package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
)

type ProductGetter interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

type Handler struct {
	repo     *ReviewRepository
	products ProductGetter
	sessions session.Store
	logger   *slog.Logger
}

func NewHandler(repo *ReviewRepository, products ProductGetter, sessions session.Store, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		products: products,
		sessions: sessions,
		logger:   logger,
	}
}

type listResponse struct {
	Reviews []domain.Review `json:"reviews"`
	Summary Summary         `json:"summary"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")

	reviews, err := h.repo.ListByProduct(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, listResponse{Reviews: reviews, Summary: Summarize(reviews)})
}

// HandleCreate attributes the review to the logged-in user when there is one.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")

	var req ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.products.Get(r.Context(), productID); err != nil {
		h.handleError(w, err, "failed to get product", "product_id", productID)
		return
	}

	var userID string
	if sessionID := session.FromRequest(r); sessionID != "" {
		user, err := h.sessions.GetCurrentUser(r.Context(), sessionID)
		if err != nil {
			h.logger.Error("failed to load current user", "error", err, "session_id", sessionID)
		} else if user != nil {
			userID = user.ID
			req.Author = user.Name
		}
	}

	review, err := h.repo.Create(r.Context(), productID, userID, req)
	if err != nil {
		h.handleError(w, err, "failed to create review", "product_id", productID)
		return
	}

	h.logger.Info("review created", "review_id", review.ID, "product_id", productID, "rating", review.Rating)
	h.writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var verr *domain.ValidationError
	switch {
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
