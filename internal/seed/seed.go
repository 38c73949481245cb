// Package seed loads the demo catalog and accounts into empty collections.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/inventory"
	"github.com/joao-fontenele/levelup-gamer/internal/users"
)

type Report struct {
	Products int `json:"products"`
	Users    int `json:"users"`
}

// DemoPassword is shared by every seeded account.
const DemoPassword = "levelup1"

func Products() []domain.Product {
	return []domain.Product{
		{ID: "JM001", Name: "Catan", Price: 29990, Category: domain.CategoryBoardGames, Stock: 15, MinStock: 3,
			Description: "Juego de estrategia para 3-4 jugadores: comercia, construye y coloniza la isla de Catan."},
		{ID: "JM002", Name: "Carcassonne", Price: 24990, Category: domain.CategoryBoardGames, Stock: 12, MinStock: 3,
			Description: "Juego de colocación de losetas para 2-5 jugadores ambientado en la Francia medieval."},
		{ID: "AC001", Name: "Controlador Inalámbrico Xbox Series X", Price: 59990, Category: domain.CategoryAccessories, Stock: 20, MinStock: 5,
			Description: "Control inalámbrico con agarre texturizado y compatibilidad con Xbox y PC."},
		{ID: "AC002", Name: "Auriculares Gamer HyperX Cloud II", Price: 79990, Category: domain.CategoryAccessories, Stock: 10, MinStock: 3,
			Description: "Sonido envolvente 7.1 y micrófono desmontable con cancelación de ruido."},
		{ID: "AC003", Name: "Mouse Gamer Logitech G502 HERO", Price: 49990, Category: domain.CategoryAccessories, Stock: 25, MinStock: 5,
			Description: "Sensor HERO de 25K DPI con 11 botones programables y pesos ajustables."},
		{ID: "CO001", Name: "PlayStation 5", Price: 549990, Category: domain.CategoryConsoles, Stock: 6, MinStock: 2,
			Description: "Consola de última generación con SSD ultrarrápido y control DualSense."},
		{ID: "CG001", Name: "PC Gamer ASUS ROG Strix", Price: 1299990, Category: domain.CategoryGamingPCs, Stock: 4, MinStock: 1,
			Description: "Equipo de alto rendimiento con tarjeta gráfica dedicada para los juegos más exigentes."},
		{ID: "SG001", Name: "Silla Gamer Secretlab Titan", Price: 349990, Category: domain.CategoryChairs, Stock: 8, MinStock: 2,
			Description: "Soporte lumbar ajustable y reclinación de 165 grados para sesiones largas."},
	}
}

func Users() []users.UserInput {
	return []users.UserInput{
		{RUT: "11.111.111-1", Name: "Administrador Level-Up", Email: "admin@levelupgamer.cl",
			UserType: domain.UserTypeAdmin, Birthdate: "1990-01-15", Region: "Metropolitana", Comuna: "Santiago"},
		{RUT: "22.222.222-2", Name: "Vendedor Level-Up", Email: "vendedor@levelupgamer.cl",
			UserType: domain.UserTypeSeller, Birthdate: "1992-06-30", Region: "Metropolitana", Comuna: "Providencia"},
		{RUT: "12.345.678-5", Name: "Cliente Duoc", Email: "cliente@duocuc.cl",
			UserType: domain.UserTypeCustomer, Birthdate: "2001-09-18", Region: "Valparaíso", Comuna: "Viña del Mar",
			Address: "Av. Libertad 1200"},
	}
}

// Run inserts the demo products and users, each only into a collection that is still empty.
// Running it again is a no-op.
func Run(ctx context.Context, store collection.Store, logger *slog.Logger) (Report, error) {
	var report Report

	empty, err := isEmpty(ctx, store, collection.Products)
	if err != nil {
		return report, err
	}
	if empty {
		products := inventory.NewProductRepository(store)
		for _, p := range Products() {
			if err := products.Insert(ctx, p); err != nil {
				return report, fmt.Errorf("seed product %s: %w", p.ID, err)
			}
			report.Products++
		}
	} else {
		logger.Info("products already present, skipping")
	}

	empty, err = isEmpty(ctx, store, collection.Users)
	if err != nil {
		return report, err
	}
	if empty {
		repo := users.NewUserRepository(store)
		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return report, fmt.Errorf("hash demo password: %w", err)
		}
		for _, in := range Users() {
			u := domain.User{
				RUT:          in.RUT,
				Name:         in.Name,
				Email:        users.AssignEmailDomain(in.Email, in.UserType),
				PasswordHash: string(hash),
				Birthdate:    in.Birthdate,
				UserType:     in.UserType,
				Region:       in.Region,
				Comuna:       in.Comuna,
				Address:      in.Address,
			}
			if in.UserType == domain.UserTypeCustomer {
				d := users.StudentDiscount
				u.DiscountPercentage = &d
			}
			if err := repo.Create(ctx, &u); err != nil {
				return report, fmt.Errorf("seed user %s: %w", in.Email, err)
			}
			report.Users++
		}
	} else {
		logger.Info("users already present, skipping")
	}

	logger.Info("seed complete", "products", report.Products, "users", report.Users)
	return report, nil
}

func isEmpty(ctx context.Context, store collection.Store, name string) (bool, error) {
	docs, err := store.List(ctx, name, collection.Query{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("check %s: %w", name, err)
	}
	return len(docs) == 0, nil
}
