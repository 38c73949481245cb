package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

func line(id string, price int64, qty int) domain.CartLine {
	return domain.CartLine{
		Product:  domain.Product{ID: id, Name: "product " + id, Price: price, Stock: 100},
		Quantity: qty,
	}
}

func TestPriceCart_Scenarios(t *testing.T) {
	cart := []domain.CartLine{line("p1", 10000, 2)}

	t.Run("twenty percent discount", func(t *testing.T) {
		q := PriceCart(cart, Percent(20))
		assert.Equal(t, int64(20000), q.Subtotal)
		assert.Equal(t, int64(4000), q.DiscountAmount)
		assert.Equal(t, int64(16000), q.FinalTotal)
		require.Len(t, q.Lines, 1)
		assert.Equal(t, int64(16000), q.Lines[0].Total)
		assert.InDelta(t, 0.2, q.Lines[0].DiscountRate, 1e-9)
	})

	t.Run("absent discount", func(t *testing.T) {
		q := PriceCart(cart, nil)
		assert.Equal(t, int64(20000), q.Subtotal)
		assert.Equal(t, int64(0), q.DiscountAmount)
		assert.Equal(t, q.Subtotal, q.FinalTotal)
		assert.Zero(t, q.Lines[0].DiscountRate)
	})

	t.Run("empty cart", func(t *testing.T) {
		q := PriceCart(nil, Percent(20))
		assert.Empty(t, q.Lines)
		assert.Zero(t, q.Subtotal)
		assert.Zero(t, q.DiscountAmount)
		assert.Zero(t, q.FinalTotal)
	})
}

func TestPriceCart_Rounding(t *testing.T) {
	tests := []struct {
		name         string
		cart         []domain.CartLine
		percent      float64
		wantDiscount int64
		wantLines    []int64
	}{
		{"half rounds up", []domain.CartLine{line("a", 5, 1)}, 10, 1, []int64{5}},
		{"below half rounds down", []domain.CartLine{line("a", 14, 1)}, 10, 1, []int64{13}},
		{"fractional percent", []domain.CartLine{line("a", 19990, 3)}, 12.5, 7496, []int64{52474}},
		{
			"lines round independently",
			[]domain.CartLine{line("a", 15, 1), line("b", 15, 1), line("c", 15, 1)},
			10,
			5,
			[]int64{14, 14, 14},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := PriceCart(tt.cart, Percent(tt.percent))
			assert.Equal(t, tt.wantDiscount, q.DiscountAmount)
			got := make([]int64, len(q.Lines))
			for i, l := range q.Lines {
				got[i] = l.Total
			}
			assert.Equal(t, tt.wantLines, got)
			assert.True(t, q.Reconciles(), "lines %d vs final %d", q.LinesTotal(), q.FinalTotal)
		})
	}
}

func TestPriceCart_ClampsPercent(t *testing.T) {
	cart := []domain.CartLine{line("a", 1000, 1)}

	assert.Equal(t, int64(1000), PriceCart(cart, Percent(-5)).FinalTotal)
	over := PriceCart(cart, Percent(150))
	assert.Equal(t, int64(0), over.FinalTotal)
	assert.Equal(t, float64(100), over.DiscountPercent)
}

func TestPriceCart_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := rng.Intn(6)
		cart := make([]domain.CartLine, n)
		for j := range cart {
			cart[j] = line(string(rune('a'+j)), int64(rng.Intn(1_000_000)), 1+rng.Intn(9))
		}
		percent := float64(rng.Intn(101))
		if rng.Intn(4) == 0 {
			percent += 0.5
			if percent > 100 {
				percent = 100
			}
		}

		q := PriceCart(cart, Percent(percent))

		var subtotal int64
		for _, cl := range cart {
			subtotal += cl.Product.Price * int64(cl.Quantity)
		}
		require.Equal(t, subtotal, q.Subtotal)
		require.Equal(t, DiscountAmount(subtotal, percent), q.DiscountAmount)
		require.Equal(t, q.Subtotal-q.DiscountAmount, q.FinalTotal)
		require.GreaterOrEqual(t, q.FinalTotal, int64(0))
		require.True(t, q.Reconciles(), "case %d: lines %d vs final %d over %d lines",
			i, q.LinesTotal(), q.FinalTotal, len(q.Lines))
	}
}
