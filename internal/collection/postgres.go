package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

const uniqueViolation = "23505"

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) List(ctx context.Context, name string, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	query := `
		SELECT id, version, body, created_at, updated_at
		FROM documents
		WHERE collection = $1`
	args := []any{name}

	if len(q.Filter) > 0 {
		filter, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, string(filter))
		query += fmt.Sprintf(" AND body @> $%d::jsonb", len(args))
	}

	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	if q.Sort != "" {
		args = append(args, q.Sort)
		query += fmt.Sprintf(" ORDER BY body -> $%d::text %s, created_at %s", len(args), direction, direction)
	} else {
		query += " ORDER BY created_at " + direction
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanDocuments(rows)
}

func (s *Postgres) Get(ctx context.Context, name, id string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, version, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, name, id).Scan(&doc.ID, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%s %s: %w", name, id, domain.ErrNotFound)
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *Postgres) GetMany(ctx context.Context, name string, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return []Document{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = ANY($2)
		ORDER BY created_at
	`, name, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanDocuments(rows)
}

func (s *Postgres) Create(ctx context.Context, name, id string, body any) (Document, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Document{}, fmt.Errorf("marshal %s body: %w", name, err)
	}

	var doc Document
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, version, body, created_at, updated_at)
		VALUES ($1, $2, 1, $3::jsonb, NOW(), NOW())
		RETURNING id, version, body, created_at, updated_at
	`, name, id, string(data)).Scan(&doc.ID, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Document{}, fmt.Errorf("%s %s: %w", name, id, ErrDuplicateID)
		}
		return Document{}, &domain.PersistenceError{Op: "create " + name, Err: err}
	}
	return doc, nil
}

func (s *Postgres) Update(ctx context.Context, name, id string, patch any, opts ...UpdateOption) (Document, error) {
	fields, err := patchObject(patch)
	if err != nil {
		return Document{}, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("marshal patch: %w", err)
	}

	o := applyOptions(opts)
	query := `
		UPDATE documents
		SET body = body || $3::jsonb, version = version + 1, updated_at = NOW()
		WHERE collection = $1 AND id = $2`
	args := []any{name, id, string(data)}
	if o.ifVersion > 0 {
		args = append(args, o.ifVersion)
		query += " AND version = $4"
	}
	query += " RETURNING id, version, body, created_at, updated_at"

	var doc Document
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&doc.ID, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Document{}, &domain.PersistenceError{Op: "update " + name, Err: err}
	}

	if _, getErr := s.Get(ctx, name, id); getErr != nil {
		return Document{}, getErr
	}
	return Document{}, fmt.Errorf("%s %s: %w", name, id, domain.ErrVersionConflict)
}

func (s *Postgres) Delete(ctx context.Context, name, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`, name, id)
	if err != nil {
		return &domain.PersistenceError{Op: "delete " + name, Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", name, id, domain.ErrNotFound)
	}

	return nil
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}
