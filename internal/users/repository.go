package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

type UserRepository struct {
	store collection.Store
}

func NewUserRepository(store collection.Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	docs, err := r.store.List(ctx, collection.Users, collection.Query{Sort: "name"})
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, fmt.Errorf("users: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	doc, err := r.store.Get(ctx, collection.Users, id)
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(doc)
}

// GetByEmail matches the lower-cased address. A miss returns domain.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) GetByRUT(ctx context.Context, rut string) (domain.User, error) {
	return r.findOne(ctx, "rut", rut)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	doc, err := r.store.Create(ctx, collection.Users, user.ID, user)
	if err != nil {
		return err
	}
	user.Version = doc.Version
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch map[string]any) (domain.User, error) {
	doc, err := r.store.Update(ctx, collection.Users, id, patch)
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(doc)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, collection.Users, id)
}

func (r *UserRepository) findOne(ctx context.Context, field, value string) (domain.User, error) {
	docs, err := r.store.List(ctx, collection.Users, collection.Query{
		Filter: map[string]any{field: value},
		Limit:  1,
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(docs) == 0 {
		return domain.User{}, fmt.Errorf("user with %s %q: %w", field, value, domain.ErrNotFound)
	}
	return decodeUser(docs[0])
}

// exists reports whether a lookup found a user, treating ErrNotFound as a clean miss.
func exists(_ domain.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func decodeUser(doc collection.Document) (domain.User, error) {
	var u domain.User
	if err := collection.Decode(doc, &u); err != nil {
		return domain.User{}, err
	}
	u.ID = doc.ID
	u.Version = doc.Version
	u.CreatedAt = doc.CreatedAt
	u.UpdatedAt = doc.UpdatedAt
	return u, nil
}
