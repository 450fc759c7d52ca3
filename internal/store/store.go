// Package store abstracts the hosted document database the app is a thin
// client over. Collections hold loosely-typed documents; queries support
// equality filters and single-field ordering; Subscribe registers a standing
// listener that re-delivers the full result set whenever it changes.
package store

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a single record in a collection.
type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Filter is an equality predicate on a single field.
type Filter struct {
	Field string
	Value any
}

// Query describes a read against one collection. Collection may be a nested
// path such as "posts/<id>/comments"; each backend maps the path its own way.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// NewQuery returns a query over the given collection path.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where appends an equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Value: value})
	return q
}

// OrderedBy sets the ordering field and direction.
func (q Query) OrderedBy(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// WithLimit caps the result size. Zero means no limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Tx exposes the reads and writes permitted inside RunTransaction.
type Tx interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// Store is the remote document store client. Update merges the given fields
// into the document, creating it when absent. Subscribe delivers the full
// current result set on registration and again after every mutation visible
// to the query, in store order, until the returned release func is called.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	RunQuery(ctx context.Context, q Query) ([]Document, error)
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, q Query, onChange func([]Document), onError func(error)) (func(), error)
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// matches reports whether every equality filter of q holds for the document.
func matches(doc Document, q Query) bool {
	for _, f := range q.Filters {
		if compareValues(doc.Data[f.Field], f.Value) != 0 {
			return false
		}
	}
	return true
}

// sortDocs orders docs in place by the query's order field, then caps them at
// the query limit. Documents missing the order field sort first.
func sortDocs(docs []Document, q Query) []Document {
	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

// compareValues orders two loosely-typed field values. Timestamps may arrive
// as time.Time or as RFC 3339 strings depending on the backend; both compare
// chronologically. Numbers compare as float64 regardless of the stored width.
func compareValues(a, b any) int {
	if ta, ok := asTimeValue(a); ok {
		if tb, ok := asTimeValue(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}
	if na, ok := asNumberValue(a); ok {
		if nb, ok := asNumberValue(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	}
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a == b {
		return 0
	}
	return -1
}

func asTimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func asNumberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
