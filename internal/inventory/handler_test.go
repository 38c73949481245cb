package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

func newTestMux(repo *ProductRepository) *http.ServeMux {
	handler := NewHandler(repo, NewStockService(repo, discardLogger()), discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", handler.HandleList)
	mux.HandleFunc("POST /products", handler.HandleCreate)
	mux.HandleFunc("GET /products/{id}", handler.HandleGet)
	mux.HandleFunc("PUT /products/{id}", handler.HandleUpdate)
	mux.HandleFunc("DELETE /products/{id}", handler.HandleDelete)
	mux.HandleFunc("POST /products/{id}/decrement", handler.HandleDecrement)
	return mux
}

func TestHandler_CreateAndGet(t *testing.T) {
	repo := NewProductRepository(collection.NewMemory())
	mux := newTestMux(repo)

	body := `{"name":"Silla Secretlab Titan","price":349990,"category":"Sillas Gamers","stock":3}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected product id to be set")
	}

	req = httptest.NewRequest(http.MethodGet, "/products/"+created.ID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestHandler_Errors(t *testing.T) {
	repo := NewProductRepository(collection.NewMemory())
	mux := newTestMux(repo)

	t.Run("invalid product is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"x","category":"Peluches"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unknown product is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/missing", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_Decrement(t *testing.T) {
	repo := NewProductRepository(collection.NewMemory())
	mux := newTestMux(repo)
	p := newProduct(t, repo, 2)

	req := httptest.NewRequest(http.MethodPost, "/products/"+p.ID+"/decrement", strings.NewReader(`{"quantity":5}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var change StockChange
	if err := json.NewDecoder(rec.Body).Decode(&change); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if change.New != 0 || !change.Clamped {
		t.Errorf("expected clamped decrement to zero, got %+v", change)
	}

	stored, _ := repo.Get(context.Background(), p.ID)
	if stored.Stock != 0 {
		t.Errorf("expected stored stock 0, got %d", stored.Stock)
	}
}

func TestHandler_UpdateStaleVersion(t *testing.T) {
	repo := NewProductRepository(collection.NewMemory())
	mux := newTestMux(repo)
	p := newProduct(t, repo, 5)

	req := httptest.NewRequest(http.MethodPost, "/products/"+p.ID+"/decrement", strings.NewReader(`{"quantity":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := fmt.Sprintf(`{"name":"Catan","price":10000,"category":"Juegos de Mesa","stock":5,"version":%d}`, p.Version)
	req = httptest.NewRequest(http.MethodPut, "/products/"+p.ID, strings.NewReader(body))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := repo.Get(context.Background(), p.ID)
	if stored.Stock != 4 {
		t.Errorf("expected stock 4 after rejected edit, got %d", stored.Stock)
	}
}

func TestHandler_DeleteThenList(t *testing.T) {
	repo := NewProductRepository(collection.NewMemory())
	mux := newTestMux(repo)
	p := newProduct(t, repo, 2)

	req := httptest.NewRequest(http.MethodDelete, "/products/"+p.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/products", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var products []domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&products); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("expected empty list, got %d products", len(products))
	}
}
