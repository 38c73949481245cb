// Package reviews stores product ratings and comments.
package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/validation"
)

type ReviewInput struct {
	Author  string `json:"author" validate:"required,max=100"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

type ReviewRepository struct {
	store collection.Store
	now   func() time.Time
}

func NewReviewRepository(store collection.Store) *ReviewRepository {
	return &ReviewRepository{store: store, now: time.Now}
}

// ListByProduct returns the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	docs, err := r.store.List(ctx, collection.Reviews, collection.Query{
		Filter: map[string]any{"productId": productID},
		Desc:   true,
	})
	if err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		var rv domain.Review
		if err := collection.Decode(doc, &rv); err != nil {
			return nil, fmt.Errorf("reviews: %w", err)
		}
		rv.ID = doc.ID
		rv.Version = doc.Version
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

func (r *ReviewRepository) Create(ctx context.Context, productID, userID string, in ReviewInput) (domain.Review, error) {
	in.Author = strings.TrimSpace(in.Author)
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return domain.Review{}, err
	}

	review := domain.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		Author:    in.Author,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: r.now().UTC(),
	}

	doc, err := r.store.Create(ctx, collection.Reviews, review.ID, review)
	if err != nil {
		return domain.Review{}, err
	}
	review.Version = doc.Version
	return review, nil
}

func (r *ReviewRepository) Summary(ctx context.Context, productID string) (Summary, error) {
	reviews, err := r.ListByProduct(ctx, productID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(reviews), nil
}

// Summarize averages ratings to one decimal place.
func Summarize(reviews []domain.Review) Summary {
	if len(reviews) == 0 {
		return Summary{}
	}

	total := 0
	for _, rv := range reviews {
		total += rv.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return Summary{Count: len(reviews), Average: math.Round(avg*10) / 10}
}
