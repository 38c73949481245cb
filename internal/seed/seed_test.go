package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/inventory"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
	"github.com/joao-fontenele/levelup-gamer/internal/users"
	"github.com/joao-fontenele/levelup-gamer/internal/validation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := collection.NewMemory()

	first, err := Run(ctx, store, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, Report{Products: len(Products()), Users: len(Users())}, first)

	second, err := Run(ctx, store, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, Report{}, second)

	products, err := inventory.NewProductRepository(store).List(ctx, inventory.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, len(Products()))
}

func TestRun_SkipsPopulatedCollections(t *testing.T) {
	ctx := context.Background()
	store := collection.NewMemory()
	require.NoError(t, inventory.NewProductRepository(store).Insert(ctx, domain.Product{ID: "mine", Name: "Propio", Price: 1}))

	report, err := Run(ctx, store, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Products)
	assert.Equal(t, len(Users()), report.Users)
}

func TestProducts_CoverEveryCategory(t *testing.T) {
	seen := map[domain.Category]bool{}
	for _, p := range Products() {
		assert.True(t, p.Category.Valid(), "product %s has unknown category %q", p.ID, p.Category)
		assert.Positive(t, p.Price)
		seen[p.Category] = true
	}
	for _, c := range domain.Categories {
		assert.True(t, seen[c], "no demo product in %s", c)
	}
}

func TestUsers_CanLogIn(t *testing.T) {
	ctx := context.Background()
	store := collection.NewMemory()
	_, err := Run(ctx, store, discardLogger())
	require.NoError(t, err)

	svc := users.NewService(users.NewUserRepository(store), session.NewMemory(), events.Nop{}, discardLogger())
	for _, in := range Users() {
		assert.True(t, validation.ValidRUT(in.RUT), "demo RUT %s", in.RUT)

		u, err := svc.Login(ctx, "s1", in.Email, DemoPassword)
		require.NoError(t, err, in.Email)
		assert.Equal(t, in.UserType, u.UserType)
	}
}
