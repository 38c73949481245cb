package domain

type Category string

const (
	CategoryBoardGames  Category = "Juegos de Mesa"
	CategoryAccessories Category = "Accesorios"
	CategoryConsoles    Category = "Consolas"
	CategoryGamingPCs   Category = "Computadores Gamers"
	CategoryChairs      Category = "Sillas Gamers"
)

var Categories = []Category{
	CategoryBoardGames,
	CategoryAccessories,
	CategoryConsoles,
	CategoryGamingPCs,
	CategoryChairs,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product prices are whole Chilean pesos.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
	Stock       int      `json:"stock"`
	MinStock    int      `json:"minStock,omitempty"`
	Image       string   `json:"image"`
	Version     int64    `json:"version"`
}

// LowStock is advisory only; nothing blocks a sale because of it.
func (p Product) LowStock() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}
