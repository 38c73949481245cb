package checkout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
)

func TestHandler_Checkout(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.addProduct(t, domain.Product{ID: "p1", Name: "Catan", Price: 5000, Stock: 5})

	handler := NewHandler(f.service, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", handler.HandleCheckout)

	body := `{"rutCliente":"12.345.678-5","paymentMethod":"debito","courier":"envio",` +
		`"addressDetail":"Av. Siempre Viva 742","region":"Metropolitana","commune":"Providencia"}`

	t.Run("missing session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
		req.Header.Set(session.HeaderName, sessionID)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("places order", func(t *testing.T) {
		f.setCart(t, domain.CartLine{Product: p1, Quantity: 1})

		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
		req.Header.Set(session.HeaderName, sessionID)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var result Result
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result.Order.Tracking != domain.TrackingPending {
			t.Errorf("expected tracking %q, got %q", domain.TrackingPending, result.Order.Tracking)
		}
		if result.Order.FinalTotal != 5000 {
			t.Errorf("expected final total 5000, got %d", result.Order.FinalTotal)
		}
	})
}
