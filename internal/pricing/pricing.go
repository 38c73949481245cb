// Package pricing turns a cart and a customer discount rate into line and order totals.
// All amounts are whole Chilean pesos; rounding is half-up.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type Line struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	// DiscountRate is the fraction (0-1) recorded on the order item.
	DiscountRate float64 `json:"discountRate"`
	Total        int64   `json:"total"`
}

type Quote struct {
	Lines           []Line  `json:"lines"`
	DiscountPercent float64 `json:"discountPercent"`
	Subtotal        int64   `json:"subtotal"`
	DiscountAmount  int64   `json:"discountAmount"`
	FinalTotal      int64   `json:"finalTotal"`
}

// PriceCart never fails. A nil rate means no discount; rates outside 0-100 are clamped.
func PriceCart(lines []domain.CartLine, discountPercent *float64) Quote {
	percent := normalizePercent(discountPercent)
	rate := decimal.NewFromFloat(percent)
	keep := hundred.Sub(rate).Div(hundred)
	fraction, _ := rate.Div(hundred).Float64()

	quote := Quote{
		Lines:           make([]Line, 0, len(lines)),
		DiscountPercent: percent,
	}

	for _, cl := range lines {
		subtotal := cl.Product.Price * int64(cl.Quantity)
		quote.Subtotal += subtotal
		quote.Lines = append(quote.Lines, Line{
			ProductID:    cl.Product.ID,
			Name:         cl.Product.Name,
			UnitPrice:    cl.Product.Price,
			Quantity:     cl.Quantity,
			Subtotal:     subtotal,
			DiscountRate: fraction,
			Total:        decimal.NewFromInt(subtotal).Mul(keep).Round(0).IntPart(),
		})
	}

	quote.DiscountAmount = DiscountAmount(quote.Subtotal, percent)
	quote.FinalTotal = quote.Subtotal - quote.DiscountAmount
	return quote
}

// DiscountAmount is round(subtotal * percent / 100).
func DiscountAmount(subtotal int64, percent float64) int64 {
	return decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(0).
		IntPart()
}

func (q Quote) LinesTotal() int64 {
	var total int64
	for _, l := range q.Lines {
		total += l.Total
	}
	return total
}

// Reconciles reports whether the per-line totals agree with FinalTotal within the one peso
// per line that independent rounding can introduce.
func (q Quote) Reconciles() bool {
	diff := q.LinesTotal() - q.FinalTotal
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(len(q.Lines))
}

func Percent(v float64) *float64 {
	return &v
}

func normalizePercent(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return math.Min(100, math.Max(0, *p))
}
