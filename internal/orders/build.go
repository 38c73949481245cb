package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/pricing"
	"github.com/joao-fontenele/levelup-gamer/internal/validation"
)

// CheckoutInfo is the delivery and payment form submitted with a checkout.
type CheckoutInfo struct {
	RUTCliente    string         `json:"rutCliente" validate:"required,rut"`
	Email         string         `json:"email" validate:"omitempty,email"`
	PaymentMethod string         `json:"paymentMethod" validate:"required,oneof=webpay debito credito transferencia"`
	Courier       domain.Courier `json:"courier" validate:"required"`
	AddressDetail string         `json:"addressDetail" validate:"max=200"`
	Region        string         `json:"region" validate:"max=80"`
	Commune       string         `json:"commune" validate:"max=80"`
	BranchOffice  string         `json:"branchOffice" validate:"max=120"`
}

func (in CheckoutInfo) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	switch in.Courier {
	case domain.CourierShipping:
		required := []struct{ field, value string }{
			{"addressDetail", in.AddressDetail},
			{"region", in.Region},
			{"commune", in.Commune},
		}
		for _, r := range required {
			if strings.TrimSpace(r.value) == "" {
				return domain.NewValidationError(r.field, "is required for home delivery")
			}
		}
	case domain.CourierPickup:
		if strings.TrimSpace(in.BranchOffice) == "" {
			return domain.NewValidationError("branchOffice", "is required for store pickup")
		}
	default:
		return domain.NewValidationError("courier", "must be %q or %q", domain.CourierPickup, domain.CourierShipping)
	}
	return nil
}

// Build assembles a new order from a priced cart. The order has no id until it is stored.
func Build(lines []domain.CartLine, info CheckoutInfo, quote pricing.Quote, now time.Time) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, domain.NewValidationError("cart", "is empty")
	}
	if err := info.Validate(); err != nil {
		return domain.Order{}, err
	}

	items := make([]domain.OrderItem, 0, len(quote.Lines))
	for _, l := range quote.Lines {
		items = append(items, domain.OrderItem{
			Name:               l.Name,
			Quantity:           l.Quantity,
			SubTotal:           l.Subtotal,
			DiscountPercentage: l.DiscountRate,
			Total:              l.Total,
		})
	}

	order := domain.Order{
		RUTCliente:     strings.TrimSpace(info.RUTCliente),
		Date:           now.UTC().Format(time.RFC3339),
		Items:          items,
		Total:          quote.FinalTotal,
		PaymentID:      fmt.Sprintf("PAY-%d", now.UnixMilli()),
		PaymentMethod:  info.PaymentMethod,
		PaymentState:   domain.PaymentPending,
		Courier:        info.Courier,
		Status:         domain.OrderStatusPreparing,
		GlobalSubtotal: quote.Subtotal,
		GlobalDiscount: quote.DiscountAmount,
		FinalTotal:     quote.FinalTotal,
	}

	if info.Courier == domain.CourierShipping {
		order.AddressDetail = info.AddressDetail
		order.Region = info.Region
		order.Commune = info.Commune
		order.Tracking = domain.TrackingPending
	} else {
		order.BranchOffice = info.BranchOffice
		order.Tracking = "RETIRO " + info.BranchOffice
	}

	return order, nil
}
