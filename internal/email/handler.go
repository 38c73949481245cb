// Package email is the mailer service: it accepts messages over HTTP and records them in
// an outbox. Delivery is simulated.
package email

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/validation"
)

const outboxSize = 100

type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

type SentMessage struct {
	Message
	SentAt time.Time `json:"sentAt"`
}

type Handler struct {
	logger   *slog.Logger
	maxDelay time.Duration

	mu     sync.Mutex
	outbox []SentMessage
}

// NewHandler simulates delivery with a random delay of up to maxDelay.
func NewHandler(logger *slog.Logger, maxDelay time.Duration) *Handler {
	return &Handler{
		logger:   logger,
		maxDelay: maxDelay,
	}
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req Message
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.maxDelay > 0 {
		time.Sleep(rand.N(h.maxDelay))
	}

	h.record(req)
	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleOutbox lists recently sent messages, newest first. ?limit= caps the result.
func (h *Handler) HandleOutbox(w http.ResponseWriter, r *http.Request) {
	limit := outboxSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	h.mu.Lock()
	sent := make([]SentMessage, 0, min(limit, len(h.outbox)))
	for i := len(h.outbox) - 1; i >= 0 && len(sent) < limit; i-- {
		sent = append(sent, h.outbox[i])
	}
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, sent)
}

func (h *Handler) record(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.outbox = append(h.outbox, SentMessage{Message: m, SentAt: time.Now().UTC()})
	if len(h.outbox) > outboxSize {
		h.outbox = h.outbox[len(h.outbox)-outboxSize:]
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
