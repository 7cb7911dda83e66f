// Package docstore is a collection-oriented document store with live
// queries. Documents are JSON objects addressed by (collection, id).
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidPath       = errors.New("invalid collection or document id")
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Document is a stored record. Data holds JSON-normalized values: numbers
// are float64, arrays are []any and objects are map[string]any.
type Document struct {
	Collection string         `json:"-"`
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Decode unmarshals the document fields into v.
func (d *Document) Decode(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Store is implemented by MemoryStore, GormStore and Live.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Add creates a document with a store-assigned id and returns the id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set creates the document or replaces all of its fields.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
}

type Op string

const (
	OpEqual            Op = "=="
	OpArrayContainsAny Op = "array-contains-any"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of a collection. All filters must match.
// Results are ordered by OrderBy (ascending) and then by id.
type Query struct {
	Filters []Filter
	OrderBy string
	Limit   int
}

// Where starts a query with a single filter.
func Where(field string, op Op, value any) Query {
	return Query{}.Where(field, op, value)
}

func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Matches reports whether data satisfies every filter of q.
func (q Query) Matches(data map[string]any) (bool, error) {
	for _, f := range q.Filters {
		ok, err := f.matches(data)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (f Filter) matches(data map[string]any) (bool, error) {
	got, present := data[f.Field]
	want, err := normalizeValue(f.Value)
	if err != nil {
		return false, err
	}

	switch f.Op {
	case OpEqual:
		return present && reflect.DeepEqual(got, want), nil
	case OpArrayContainsAny:
		candidates, ok := want.([]any)
		if !ok {
			return false, fmt.Errorf("%w: %s needs a list value", ErrUnsupportedFilter, f.Op)
		}
		elems, ok := got.([]any)
		if !present || !ok {
			return false, nil
		}
		for _, e := range elems {
			for _, c := range candidates {
				if reflect.DeepEqual(e, c) {
					return true, nil
				}
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedFilter, f.Op)
	}
}

func sortDocuments(docs []Document, orderBy string) {
	sort.SliceStable(docs, func(i, j int) bool {
		if orderBy != "" {
			a, b := sortKey(docs[i].Data[orderBy]), sortKey(docs[j].Data[orderBy])
			if a != b {
				return a < b
			}
		}
		return docs[i].ID < docs[j].ID
	})
}

func sortKey(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func checkPath(collection string, ids ...string) error {
	if collection == "" || strings.Contains(collection, "/") {
		return ErrInvalidPath
	}
	for _, id := range ids {
		if id == "" || strings.Contains(id, "/") {
			return ErrInvalidPath
		}
	}
	return nil
}

// normalize returns a deep copy of data in its JSON form.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON encodable: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("filter value is not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToMap converts a struct into document fields using its json tags.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
