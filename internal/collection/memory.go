package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

// Memory is an in-process Store with the same semantics as Postgres. It backs unit tests
// and local runs without a database.
type Memory struct {
	mu    sync.RWMutex
	seq   int64
	docs  map[string]map[string]*memoryDoc
	clock func() time.Time
}

type memoryDoc struct {
	Document
	seq int64
}

func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string]*memoryDoc),
		clock: time.Now,
	}
}

func (m *Memory) List(_ context.Context, name string, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var filter map[string]json.RawMessage
	if len(q.Filter) > 0 {
		data, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
		if err := json.Unmarshal(data, &filter); err != nil {
			return nil, fmt.Errorf("decode filter: %w", err)
		}
	}

	m.mu.RLock()
	matched := make([]*memoryDoc, 0, len(m.docs[name]))
	for _, doc := range m.docs[name] {
		ok, err := matches(doc.Body, filter)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Desc {
			a, b = b, a
		}
		if q.Sort != "" {
			if c := compareField(a.Body, b.Body, q.Sort); c != 0 {
				return c < 0
			}
		}
		return a.seq < b.seq
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Document, len(matched))
	for i, doc := range matched {
		out[i] = cloneDocument(doc.Document)
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, name, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[name][id]
	if !ok {
		return Document{}, fmt.Errorf("%s %s: %w", name, id, domain.ErrNotFound)
	}
	return cloneDocument(doc.Document), nil
}

func (m *Memory) GetMany(_ context.Context, name string, ids []string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make([]*memoryDoc, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.docs[name][id]; ok {
			found = append(found, doc)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]Document, len(found))
	for i, doc := range found {
		out[i] = cloneDocument(doc.Document)
	}
	return out, nil
}

func (m *Memory) Create(_ context.Context, name, id string, body any) (Document, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Document{}, fmt.Errorf("marshal %s body: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[name] == nil {
		m.docs[name] = make(map[string]*memoryDoc)
	}
	if _, exists := m.docs[name][id]; exists {
		return Document{}, fmt.Errorf("%s %s: %w", name, id, ErrDuplicateID)
	}

	now := m.clock().UTC()
	m.seq++
	doc := &memoryDoc{
		Document: Document{
			ID:        id,
			Version:   1,
			Body:      data,
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: m.seq,
	}
	m.docs[name][id] = doc
	return cloneDocument(doc.Document), nil
}

func (m *Memory) Update(_ context.Context, name, id string, patch any, opts ...UpdateOption) (Document, error) {
	fields, err := patchObject(patch)
	if err != nil {
		return Document{}, err
	}
	o := applyOptions(opts)

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[name][id]
	if !ok {
		return Document{}, fmt.Errorf("%s %s: %w", name, id, domain.ErrNotFound)
	}
	if o.ifVersion > 0 && doc.Version != o.ifVersion {
		return Document{}, fmt.Errorf("%s %s: %w", name, id, domain.ErrVersionConflict)
	}

	var current map[string]json.RawMessage
	if err := json.Unmarshal(doc.Body, &current); err != nil {
		return Document{}, fmt.Errorf("decode %s %s: %w", name, id, err)
	}
	if current == nil {
		current = make(map[string]json.RawMessage, len(fields))
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return Document{}, fmt.Errorf("marshal %s %s: %w", name, id, err)
	}

	doc.Body = merged
	doc.Version++
	doc.UpdatedAt = m.clock().UTC()
	return cloneDocument(doc.Document), nil
}

func (m *Memory) Delete(_ context.Context, name, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[name][id]; !ok {
		return fmt.Errorf("%s %s: %w", name, id, domain.ErrNotFound)
	}
	delete(m.docs[name], id)
	return nil
}

func cloneDocument(doc Document) Document {
	doc.Body = bytes.Clone(doc.Body)
	return doc
}

// matches mirrors jsonb containment for top-level scalar fields.
func matches(body json.RawMessage, filter map[string]json.RawMessage) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, err
	}

	for k, want := range filter {
		got, ok := fields[k]
		if !ok {
			return false, nil
		}
		equal, err := jsonEqual(got, want)
		if err != nil {
			return false, err
		}
		if !equal {
			return false, nil
		}
	}
	return true, nil
}

func jsonEqual(a, b json.RawMessage) (bool, error) {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false, err
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return bytes.Equal(ca, cb), nil
}

// compareField orders missing < numbers < strings, like the jsonb ordering rules that matter
// for our collections.
func compareField(a, b json.RawMessage, field string) int {
	va, oka := fieldValue(a, field)
	vb, okb := fieldValue(b, field)
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return -1
	case !okb:
		return 1
	}

	switch x := va.(type) {
	case float64:
		y, ok := vb.(float64)
		if !ok {
			return -1
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, ok := vb.(string)
		if !ok {
			return 1
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return 0
}

func fieldValue(body json.RawMessage, field string) (any, bool) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}
	v, ok := fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
