package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// returnedHeaders are copied back to the client from upstream responses.
var returnedHeaders = []string{"Content-Type", "Set-Cookie", "X-Session-ID", "Cache-Control"}

type Handler struct {
	storefrontProxy *ServiceProxy
	backofficeProxy *ServiceProxy
	logger          *slog.Logger
}

func NewHandler(storefrontProxy, backofficeProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		storefrontProxy: storefrontProxy,
		backofficeProxy: backofficeProxy,
		logger:          logger,
	}
}

// HandleStorefront serves /shop/... from the storefront service with the prefix removed.
func (h *Handler) HandleStorefront(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.storefrontProxy, stripPrefix(r.URL.Path, "/shop"))
}

// HandleBackoffice serves /admin/... from the back-office service with the prefix removed.
func (h *Handler) HandleBackoffice(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.backofficeProxy, stripPrefix(r.URL.Path, "/admin"))
}

func stripPrefix(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, name := range returnedHeaders {
		for _, v := range resp.Header.Values(name) {
			w.Header().Add(name, v)
		}
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		h.stream(w, resp.Body)
		return
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

// stream relays a server-sent-events body, flushing after every read.
func (h *Handler) stream(w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Debug("event stream closed", "error", err)
			}
			return
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
