package domain

// CartLine holds a snapshot of the product taken when it was added to the cart.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}
