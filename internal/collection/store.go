// Package collection is a small document store addressed by collection name and id.
// Bodies are JSON objects; updates merge top-level fields and bump the document version.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	Products = "products"
	Users    = "users"
	Orders   = "orders"
	Reviews  = "reviews"
)

var ErrDuplicateID = errors.New("document id already exists")

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type Document struct {
	ID        string
	Version   int64
	Body      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query filters on top-level field equality. Sort names a top-level field; empty sorts by
// creation time.
type Query struct {
	Filter map[string]any
	Sort   string
	Desc   bool
	Limit  int
}

type Store interface {
	List(ctx context.Context, name string, q Query) ([]Document, error)
	Get(ctx context.Context, name, id string) (Document, error)
	GetMany(ctx context.Context, name string, ids []string) ([]Document, error)
	Create(ctx context.Context, name, id string, body any) (Document, error)
	Update(ctx context.Context, name, id string, patch any, opts ...UpdateOption) (Document, error)
	Delete(ctx context.Context, name, id string) error
}

type updateOptions struct {
	ifVersion int64
}

type UpdateOption func(*updateOptions)

// IfVersion makes the update conditional on the stored version. A mismatch yields
// domain.ErrVersionConflict.
func IfVersion(version int64) UpdateOption {
	return func(o *updateOptions) {
		o.ifVersion = version
	}
}

func applyOptions(opts []UpdateOption) updateOptions {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Decode unmarshals the body into v. Callers copy ID and Version from the document.
func Decode(doc Document, v any) error {
	if err := json.Unmarshal(doc.Body, v); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}

// patchObject normalizes a patch into a JSON object, dropping the store-managed keys.
func patchObject(patch any) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("patch must be a JSON object: %w", err)
	}
	delete(fields, "id")
	delete(fields, "version")
	return fields, nil
}

func validateQuery(q Query) error {
	if q.Sort != "" && !fieldName.MatchString(q.Sort) {
		return fmt.Errorf("invalid sort field %q", q.Sort)
	}
	for field := range q.Filter {
		if !fieldName.MatchString(field) {
			return fmt.Errorf("invalid filter field %q", field)
		}
	}
	return nil
}
