package cart

import "github.com/joao-fontenele/levelup-gamer/internal/domain"

func Total(lines []domain.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Product.Price * int64(line.Quantity)
	}
	return total
}

func Count(lines []domain.CartLine) int {
	var count int
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}

// Available is the stock left for this product once the cart's own quantity is set aside.
func Available(product domain.Product, lines []domain.CartLine) int {
	available := product.Stock
	for _, line := range lines {
		if line.Product.ID == product.ID {
			available -= line.Quantity
		}
	}
	if available < 0 {
		return 0
	}
	return available
}

// CheckAdd validates an add-to-cart request against the product's current stock.
func CheckAdd(product domain.Product, lines []domain.CartLine, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	if available := Available(product, lines); quantity > available {
		return stockError(available, product)
	}
	return nil
}

// CheckQuantity validates replacing a line's quantity outright.
func CheckQuantity(product domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	if quantity > product.Stock {
		return stockError(product.Stock, product)
	}
	return nil
}

func stockError(available int, product domain.Product) error {
	err := domain.NewValidationError("quantity", "only %d units of %s available", available, product.Name)
	err.Err = domain.ErrInsufficientStock
	return err
}
