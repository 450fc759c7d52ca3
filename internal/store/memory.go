package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
// All operations are serialized by a single mutex, so RunTransaction gives
// real read-modify-write atomicity. Listener callbacks fire synchronously on
// the mutating goroutine, after the mutation has committed.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	listeners   map[int]*memoryListener
	nextID      int
}

type memoryListener struct {
	query    Query
	onChange func([]Document)
	onError  func(error)
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		listeners:   make(map[int]*memoryListener),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(collection, id)
}

func (s *MemoryStore) getLocked(collection, id string) (Document, error) {
	fields, ok := s.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: id, Data: copyFields(fields)}, nil
}

func (s *MemoryStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runQueryLocked(q), nil
}

func (s *MemoryStore) runQueryLocked(q Query) []Document {
	var docs []Document
	for id, fields := range s.collections[q.Collection] {
		doc := Document{ID: id, Data: copyFields(fields)}
		if matches(doc, q) {
			docs = append(docs, doc)
		}
	}
	return sortDocs(docs, q)
}

func (s *MemoryStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	id := uuid.NewString()
	s.putLocked(collection, id, copyFields(fields))
	snapshots := s.snapshotsLocked(collection)
	s.mu.Unlock()
	deliver(snapshots)
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	existing, ok := s.collections[collection][id]
	if !ok {
		existing = make(map[string]any)
	}
	merged := copyFields(existing)
	for k, v := range fields {
		merged[k] = v
	}
	s.putLocked(collection, id, merged)
	snapshots := s.snapshotsLocked(collection)
	s.mu.Unlock()
	deliver(snapshots)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	delete(s.collections[collection], id)
	snapshots := s.snapshotsLocked(collection)
	s.mu.Unlock()
	deliver(snapshots)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query, onChange func([]Document), onError func(error)) (func(), error) {
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.listeners[key] = &memoryListener{query: q, onChange: onChange, onError: onError}
	initial := s.runQueryLocked(q)
	s.mu.Unlock()

	// Initial snapshot, delivered before any mutation events.
	onChange(initial)

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, key)
			s.mu.Unlock()
		})
	}
	return release, nil
}

type memoryWrite struct {
	collection, id string
	fields         map[string]any
}

// memoryTx buffers writes until commit; reads see pre-transaction state.
type memoryTx struct {
	s      *MemoryStore
	writes []memoryWrite
}

func (t *memoryTx) Get(ctx context.Context, collection, id string) (Document, error) {
	return t.s.getLocked(collection, id)
}

func (t *memoryTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	t.writes = append(t.writes, memoryWrite{collection: collection, id: id, fields: copyFields(fields)})
	return nil
}

// RunTransaction holds the store mutex for the whole callback, so the read
// set cannot change under the transaction and concurrent transactions apply
// one at a time. Buffered writes commit only when fn returns nil.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	tx := &memoryTx{s: s}
	err := fn(ctx, tx)
	var snapshots []func()
	if err == nil {
		touched := make(map[string]bool)
		for _, w := range tx.writes {
			existing, ok := s.collections[w.collection][w.id]
			if !ok {
				existing = make(map[string]any)
			}
			merged := copyFields(existing)
			for k, v := range w.fields {
				merged[k] = v
			}
			s.putLocked(w.collection, w.id, merged)
			touched[w.collection] = true
		}
		for collection := range touched {
			snapshots = append(snapshots, s.snapshotsLocked(collection)...)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	deliver(snapshots)
	return nil
}

func (s *MemoryStore) putLocked(collection, id string, fields map[string]any) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = fields
}

// snapshotsLocked recomputes the result set of every listener on the given
// collection and returns closures that deliver them. Delivery happens after
// the mutex is released, so callbacks may call back into the store.
func (s *MemoryStore) snapshotsLocked(collection string) []func() {
	var out []func()
	for _, l := range s.listeners {
		if l.query.Collection != collection {
			continue
		}
		docs := s.runQueryLocked(l.query)
		cb := l.onChange
		out = append(out, func() { cb(docs) })
	}
	return out
}

func deliver(snapshots []func()) {
	for _, fire := range snapshots {
		fire()
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
