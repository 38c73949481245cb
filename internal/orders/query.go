package orders

import (
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Search matches term case-insensitively against id, customer RUT, courier and payment
// method. An empty term matches everything.
func Search(orders []domain.Order, term string) []domain.Order {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return orders
	}

	matched := []domain.Order{}
	for _, o := range orders {
		for _, field := range []string{o.ID, o.RUTCliente, string(o.Courier), o.PaymentMethod} {
			if strings.Contains(strings.ToLower(field), term) {
				matched = append(matched, o)
				break
			}
		}
	}
	return matched
}

// ParseDate reads an order date in ISO form, falling back to the legacy DD-MM-YYYY form.
// Dates without a zone are taken in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, errDay := strconv.Atoi(parts[0])
	month, errMonth := strconv.Atoi(parts[1])
	year, errYear := strconv.Atoi(parts[2])
	if errDay != nil || errMonth != nil || errYear != nil || len(parts[2]) != 4 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

type PeriodSales struct {
	Current    int64   `json:"current"`
	Previous   int64   `json:"previous"`
	GrowthRate float64 `json:"growthRate"`
}

// Sales sums final totals for the calendar month containing now and the month before it.
func Sales(orders []domain.Order, now time.Time) PeriodSales {
	loc := now.Location()
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	nextStart := currentStart.AddDate(0, 1, 0)
	previousStart := currentStart.AddDate(0, -1, 0)

	var sales PeriodSales
	for _, o := range orders {
		t, ok := ParseDate(o.Date, loc)
		if !ok {
			continue
		}
		t = t.In(loc)

		switch {
		case !t.Before(currentStart) && t.Before(nextStart):
			sales.Current += o.FinalTotal
		case !t.Before(previousStart) && t.Before(currentStart):
			sales.Previous += o.FinalTotal
		}
	}

	sales.GrowthRate = growth(sales.Current, sales.Previous)
	return sales
}

// GrowthRate is (current - previous) / previous over calendar months. With no previous
// sales it is 1 when there are current sales and 0 otherwise.
func GrowthRate(orders []domain.Order, now time.Time) float64 {
	return Sales(orders, now).GrowthRate
}

func growth(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 1
		}
		return 0
	}
	return float64(current-previous) / float64(previous)
}
