package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

type item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
}

func seedItems(t *testing.T, s *Memory) {
	t.Helper()
	ctx := context.Background()
	for _, it := range []item{
		{ID: "a", Name: "Catan", Category: "Juegos de Mesa", Price: 29990, Stock: 4},
		{ID: "b", Name: "Carcassonne", Category: "Juegos de Mesa", Price: 24990, Stock: 2},
		{ID: "c", Name: "PlayStation 5", Category: "Consolas", Price: 549990, Stock: 1},
	} {
		_, err := s.Create(ctx, Products, it.ID, it)
		require.NoError(t, err)
	}
}

func TestMemory_List(t *testing.T) {
	s := NewMemory()
	seedItems(t, s)
	ctx := context.Background()

	t.Run("keeps insertion order without sort", func(t *testing.T) {
		docs, err := s.List(ctx, Products, Query{})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []string{"a", "b", "c"}, ids(docs))
	})

	t.Run("filters by field equality", func(t *testing.T) {
		docs, err := s.List(ctx, Products, Query{Filter: map[string]any{"category": "Juegos de Mesa"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(docs))
	})

	t.Run("sorts numerically", func(t *testing.T) {
		docs, err := s.List(ctx, Products, Query{Sort: "price", Desc: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, ids(docs))
	})

	t.Run("applies limit", func(t *testing.T) {
		docs, err := s.List(ctx, Products, Query{Sort: "name", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(docs))
	})

	t.Run("rejects unsafe field names", func(t *testing.T) {
		_, err := s.List(ctx, Products, Query{Sort: "price; DROP TABLE"})
		assert.Error(t, err)
	})

	t.Run("unknown collection is empty", func(t *testing.T) {
		docs, err := s.List(ctx, Reviews, Query{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("merges top-level fields and bumps version", func(t *testing.T) {
		s := NewMemory()
		seedItems(t, s)

		doc, err := s.Update(ctx, Products, "a", map[string]any{"stock": 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.Version)

		var got item
		require.NoError(t, Decode(doc, &got))
		assert.Equal(t, 1, got.Stock)
		assert.Equal(t, "Catan", got.Name)
	})

	t.Run("ignores id and version in patch", func(t *testing.T) {
		s := NewMemory()
		seedItems(t, s)

		doc, err := s.Update(ctx, Products, "a", map[string]any{"id": "z", "version": 99})
		require.NoError(t, err)
		var got item
		require.NoError(t, Decode(doc, &got))
		assert.Equal(t, "a", got.ID)
		assert.Equal(t, int64(2), doc.Version)
	})

	t.Run("conditional update conflicts on stale version", func(t *testing.T) {
		s := NewMemory()
		seedItems(t, s)

		_, err := s.Update(ctx, Products, "a", map[string]any{"stock": 3}, IfVersion(1))
		require.NoError(t, err)

		_, err = s.Update(ctx, Products, "a", map[string]any{"stock": 2}, IfVersion(1))
		assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	})

	t.Run("missing document", func(t *testing.T) {
		s := NewMemory()
		_, err := s.Update(ctx, Products, "nope", map[string]any{"stock": 1})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestMemory_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	seedItems(t, s)

	_, err := s.Create(ctx, Products, "a", item{ID: "a"})
	assert.True(t, errors.Is(err, ErrDuplicateID))

	doc, err := s.Get(ctx, Products, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	many, err := s.GetMany(ctx, Products, []string{"c", "missing", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(many))

	require.NoError(t, s.Delete(ctx, Products, "c"))
	_, err = s.Get(ctx, Products, "c")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, Products, "c"), domain.ErrNotFound))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	seedItems(t, s)

	doc, err := s.Get(ctx, Products, "a")
	require.NoError(t, err)
	doc.Body[0] = 'X'

	again, err := s.Get(ctx, Products, "a")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.Body[0])
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
