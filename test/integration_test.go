//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/levelup-gamer/internal/checkout"
	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/email"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/inventory"
	"github.com/joao-fontenele/levelup-gamer/internal/messaging"
	"github.com/joao-fontenele/levelup-gamer/internal/orders"
	"github.com/joao-fontenele/levelup-gamer/internal/seed"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
	"github.com/joao-fontenele/levelup-gamer/internal/users"
	"github.com/joao-fontenele/levelup-gamer/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type note struct {
	Title string `json:"title"`
	Tag   string `json:"tag"`
	Rank  int    `json:"rank"`
}

func TestDocumentStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	store := OpenStore(ctx, t, pg.ConnStr)

	for i, n := range []note{
		{Title: "b", Tag: "red", Rank: 2},
		{Title: "a", Tag: "blue", Rank: 1},
		{Title: "c", Tag: "red", Rank: 3},
	} {
		id := string(rune('x' + i))
		if _, err := store.Create(ctx, "notes", id, n); err != nil {
			t.Fatalf("failed to create %s: %v", id, err)
		}
	}

	if _, err := store.Create(ctx, "notes", "x", note{Title: "dup"}); !errors.Is(err, collection.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	red, err := store.List(ctx, "notes", collection.Query{
		Filter: map[string]any{"tag": "red"},
		Sort:   "rank",
		Desc:   true,
	})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(red) != 2 || red[0].ID != "z" || red[1].ID != "x" {
		t.Fatalf("unexpected filtered order: %+v", red)
	}

	many, err := store.GetMany(ctx, "notes", []string{"y", "z", "missing"})
	if err != nil {
		t.Fatalf("failed to get many: %v", err)
	}
	if len(many) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(many))
	}

	doc, err := store.Get(ctx, "notes", "y")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}

	updated, err := store.Update(ctx, "notes", "y", map[string]any{"rank": 10}, collection.IfVersion(doc.Version))
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if updated.Version != doc.Version+1 {
		t.Fatalf("expected version %d, got %d", doc.Version+1, updated.Version)
	}

	var merged note
	if err := collection.Decode(updated, &merged); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if merged.Title != "a" || merged.Rank != 10 {
		t.Fatalf("expected merged patch, got %+v", merged)
	}

	_, err = store.Update(ctx, "notes", "y", map[string]any{"rank": 11}, collection.IfVersion(doc.Version))
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for a stale version, got %v", err)
	}

	if err := store.Delete(ctx, "notes", "y"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := store.Get(ctx, "notes", "y"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStockDecrement_ConcurrentWriters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	products := inventory.NewProductRepository(OpenStore(ctx, t, pg.ConnStr))
	stock := inventory.NewStockService(products, discardLogger())

	err := products.Insert(ctx, domain.Product{
		ID:       "JM001",
		Name:     "Catan",
		Price:    29990,
		Category: domain.CategoryBoardGames,
		Stock:    10,
	})
	if err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stock.Decrement(ctx, "JM001", 3)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("decrement failed: %v", err)
		}
	}

	product, err := products.Get(ctx, "JM001")
	if err != nil {
		t.Fatalf("failed to get product: %v", err)
	}
	if product.Stock != 4 {
		t.Fatalf("expected stock 4 after two decrements of 3, got %d", product.Stock)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	store := OpenStore(ctx, t, pg.ConnStr)

	first, err := seed.Run(ctx, store, discardLogger())
	if err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if first.Products == 0 || first.Users == 0 {
		t.Fatalf("expected demo data on an empty store, got %+v", first)
	}

	second, err := seed.Run(ctx, store, discardLogger())
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if second.Products != 0 || second.Users != 0 {
		t.Fatalf("expected no inserts on a seeded store, got %+v", second)
	}
}

func TestSessionStore_Redis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr, cleanup := SetupRedis(ctx, t)
	defer cleanup()

	client, err := session.Connect(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	defer func() { _ = client.Close() }()

	store := session.NewRedis(client, time.Hour)

	empty, err := store.GetCart(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to read empty cart: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty cart, got %+v", empty)
	}

	lines := []domain.CartLine{{Product: domain.Product{ID: "JM001", Price: 29990, Stock: 5}, Quantity: 2}}
	if err := store.SaveCart(ctx, "s1", lines); err != nil {
		t.Fatalf("failed to save cart: %v", err)
	}

	got, err := store.GetCart(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to read cart: %v", err)
	}
	if len(got) != 1 || got[0].Product.ID != "JM001" || got[0].Quantity != 2 {
		t.Fatalf("unexpected cart: %+v", got)
	}

	ttl, err := client.TTL(ctx, session.CartKey("s1")).Result()
	if err != nil {
		t.Fatalf("failed to read ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected a ttl of at most one hour, got %v", ttl)
	}

	if err := store.SetCurrentUser(ctx, "s1", domain.User{ID: "u1", Email: "cliente@duocuc.cl"}); err != nil {
		t.Fatalf("failed to set user: %v", err)
	}
	user, err := store.GetCurrentUser(ctx, "s1")
	if err != nil || user == nil || user.ID != "u1" {
		t.Fatalf("expected current user u1, got %+v (%v)", user, err)
	}

	if err := store.ClearCurrentUser(ctx, "s1"); err != nil {
		t.Fatalf("failed to clear user: %v", err)
	}
	user, err = store.GetCurrentUser(ctx, "s1")
	if err != nil || user != nil {
		t.Fatalf("expected no current user, got %+v (%v)", user, err)
	}
}

type emailCapture struct {
	mu       sync.Mutex
	messages []email.Message
	received chan struct{}
}

func (e *emailCapture) handler(w http.ResponseWriter, r *http.Request) {
	var m email.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.messages = append(e.messages, m)
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"sent"}`)

	select {
	case e.received <- struct{}{}:
	default:
	}
}

func (e *emailCapture) getMessages() []email.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]email.Message, len(e.messages))
	copy(result, e.messages)
	return result
}

func TestCheckoutFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	redisAddr, cleanupRedis := SetupRedis(ctx, t)
	defer cleanupRedis()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	logger := discardLogger()
	store := OpenStore(ctx, t, pg.ConnStr)

	client, err := session.Connect(ctx, redisAddr, "", 0)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	defer func() { _ = client.Close() }()
	sessions := session.NewRedis(client, time.Hour)

	products := inventory.NewProductRepository(store)
	orderRepo := orders.NewOrderRepository(store)
	stock := inventory.NewStockService(products, logger)

	if _, err := seed.Run(ctx, store, logger); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	catan, err := products.Get(ctx, "JM001")
	if err != nil {
		t.Fatalf("failed to get seeded product: %v", err)
	}
	initialStock := catan.Stock

	if err := sessions.SaveCart(ctx, "shopper", []domain.CartLine{{Product: catan, Quantity: 2}}); err != nil {
		t.Fatalf("failed to save cart: %v", err)
	}

	producer := messaging.NewProducer(brokers, messaging.TopicOrderCreated)
	defer func() { _ = producer.Close() }()

	bus := events.NewBus(8)
	service, err := checkout.NewService(sessions, orderRepo, stock, users.NewUserRepository(store), bus, logger, checkout.WithNotifier(producer))
	if err != nil {
		t.Fatalf("failed to create checkout service: %v", err)
	}

	result, err := service.Checkout(ctx, "shopper", orders.CheckoutInfo{
		RUTCliente:    "12.345.678-5",
		Email:         "cliente@duocuc.cl",
		PaymentMethod: "webpay",
		Courier:       domain.CourierPickup,
		BranchOffice:  "Mall Plaza Vespucio",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}

	stored, err := orderRepo.GetByID(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("failed to read stored order: %v", err)
	}
	if stored.FinalTotal != 2*catan.Price {
		t.Fatalf("expected final total %d, got %d", 2*catan.Price, stored.FinalTotal)
	}

	after, err := products.Get(ctx, "JM001")
	if err != nil {
		t.Fatalf("failed to get product: %v", err)
	}
	if after.Stock != initialStock-2 {
		t.Fatalf("expected stock %d, got %d", initialStock-2, after.Stock)
	}

	cart, err := sessions.GetCart(ctx, "shopper")
	if err != nil {
		t.Fatalf("failed to read cart: %v", err)
	}
	if len(cart) != 0 {
		t.Fatalf("expected cleared cart, got %+v", cart)
	}

	capture := &emailCapture{received: make(chan struct{}, 1)}
	mailMux := http.NewServeMux()
	mailMux.HandleFunc("POST /send", capture.handler)
	mailServer := httptest.NewServer(mailMux)
	defer mailServer.Close()

	mailer := worker.NewOrderMailer(email.NewClient(mailServer.URL, &http.Client{Timeout: 10 * time.Second}), logger)
	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderCreated, "integration-mailer", logger,
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() { _ = consumer.Consume(consumeCtx, mailer.Handle) }()

	select {
	case <-capture.received:
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for the confirmation email")
	}
	stopConsumer()

	messages := capture.getMessages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 email, got %d", len(messages))
	}
	if messages[0].To != "cliente@duocuc.cl" {
		t.Fatalf("unexpected recipient %q", messages[0].To)
	}
	if !strings.Contains(messages[0].Subject, result.Order.ID) {
		t.Fatalf("expected subject to mention order %s, got %q", result.Order.ID, messages[0].Subject)
	}
}
