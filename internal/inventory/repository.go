package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/validation"
)

// ProductInput is the admin product form.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Price       int64           `json:"price" validate:"gte=0"`
	Category    domain.Category `json:"category" validate:"required,category"`
	Description string          `json:"description" validate:"max=1000"`
	Stock       int             `json:"stock" validate:"gte=0"`
	MinStock    int             `json:"minStock" validate:"gte=0"`
	Image       string          `json:"image" validate:"max=500"`
	// Version is the product version the edit was based on. Ignored on create.
	Version int64 `json:"version,omitempty" validate:"gte=0"`
}

func (in ProductInput) product() domain.Product {
	return domain.Product{
		Name:        in.Name,
		Price:       in.Price,
		Category:    in.Category,
		Description: in.Description,
		Stock:       in.Stock,
		MinStock:    in.MinStock,
		Image:       in.Image,
	}
}

type ProductFilter struct {
	Category domain.Category
}

type ProductRepository struct {
	store collection.Store
}

func NewProductRepository(store collection.Store) *ProductRepository {
	return &ProductRepository{store: store}
}

func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	q := collection.Query{Sort: "name"}
	if filter.Category != "" {
		q.Filter = map[string]any{"category": filter.Category}
	}

	docs, err := r.store.List(ctx, collection.Products, q)
	if err != nil {
		return nil, err
	}
	return decodeProducts(docs)
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	doc, err := r.store.Get(ctx, collection.Products, id)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc)
}

func (r *ProductRepository) GetMany(ctx context.Context, ids []string) ([]domain.Product, error) {
	docs, err := r.store.GetMany(ctx, collection.Products, ids)
	if err != nil {
		return nil, err
	}
	return decodeProducts(docs)
}

func (r *ProductRepository) Create(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Product{}, err
	}

	product := in.product()
	product.ID = uuid.New().String()

	doc, err := r.store.Create(ctx, collection.Products, product.ID, product)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc)
}

// Insert stores a fully formed product under its own id. Used by seeding.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	_, err := r.store.Create(ctx, collection.Products, product.ID, product)
	return err
}

// Update replaces the editable fields of a product. The write only lands if the stored
// version still matches in.Version, so an edit made against a stale read cannot overwrite a
// concurrent stock decrement.
func (r *ProductRepository) Update(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Product{}, err
	}
	if in.Version < 1 {
		return domain.Product{}, domain.NewValidationError("version", "is required")
	}

	doc, err := r.store.Update(ctx, collection.Products, id, in, collection.IfVersion(in.Version))
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, collection.Products, id)
}

// LowStock lists products at or below their advisory minimum.
func (r *ProductRepository) LowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := r.List(ctx, ProductFilter{})
	if err != nil {
		return nil, err
	}

	low := []domain.Product{}
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

// setStock writes only the stock field, and only if the product is still at version.
func (r *ProductRepository) setStock(ctx context.Context, id string, stock int, version int64) (domain.Product, error) {
	doc, err := r.store.Update(ctx, collection.Products, id,
		map[string]any{"stock": stock},
		collection.IfVersion(version),
	)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc)
}

func decodeProduct(doc collection.Document) (domain.Product, error) {
	var p domain.Product
	if err := collection.Decode(doc, &p); err != nil {
		return domain.Product{}, err
	}
	p.ID = doc.ID
	p.Version = doc.Version
	return p, nil
}

func decodeProducts(docs []collection.Document) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProduct(doc)
		if err != nil {
			return nil, fmt.Errorf("products: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}
