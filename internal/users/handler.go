package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), session.Ensure(w, r), req)
	if err != nil {
		h.handleError(w, err, "failed to register user")
		return
	}

	h.writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Login(r.Context(), session.Ensure(w, r), req.Email, req.Password)
	if err != nil {
		h.handleError(w, err, "failed to log in")
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := session.FromRequest(r)
	if sessionID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		h.handleError(w, err, "failed to log out", "session_id", sessionID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sessionID := session.FromRequest(r)
	if sessionID == "" {
		h.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	user, err := h.service.Current(r.Context(), sessionID)
	if err != nil {
		h.handleError(w, err, "failed to load current user", "session_id", sessionID)
		return
	}
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, err, "failed to list users")
		return
	}

	h.logger.Info("users listed", "count", len(users))
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "failed to get user", "user_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req UserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.handleError(w, err, "failed to create user")
		return
	}

	h.writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.handleError(w, err, "failed to update user", "user_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err, "failed to delete user", "user_id", id)
		return
	}

	h.logger.Info("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, collection.ErrDuplicateID), errors.Is(err, domain.ErrVersionConflict):
		h.writeError(w, http.StatusConflict, "user was modified concurrently")
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
