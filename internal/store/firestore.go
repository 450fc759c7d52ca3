package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. Subscribe uses query
// snapshot listeners, RunTransaction uses native Firestore transactions.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an initialized Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// colRef resolves a collection path like "posts/<id>/comments" to a
// collection reference.
func (s *FirestoreStore) colRef(path string) *firestore.CollectionRef {
	parts := strings.Split(path, "/")
	ref := s.client.Collection(parts[0])
	for i := 1; i+1 < len(parts); i += 2 {
		ref = ref.Doc(parts[i]).Collection(parts[i+1])
	}
	return ref
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.colRef(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) buildQuery(q Query) firestore.Query {
	fq := s.colRef(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

func (s *FirestoreStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	snaps, err := s.buildQuery(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	docs := make([]Document, len(snaps))
	for i, snap := range snaps {
		docs[i] = Document{ID: snap.Ref.ID, Data: snap.Data()}
	}
	return docs, nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.colRef(collection).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := s.colRef(collection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.colRef(collection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Subscribe(ctx context.Context, q Query, onChange func([]Document), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.buildQuery(q).Snapshots(ctx)

	go func() {
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && ctx.Err() == nil {
					onError(fmt.Errorf("listen on %s: %w", q.Collection, err))
				}
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				onError(fmt.Errorf("read snapshot of %s: %w", q.Collection, err))
				continue
			}
			docs := make([]Document, len(snaps))
			for i, ds := range snaps {
				docs[i] = Document{ID: ds.Ref.ID, Data: ds.Data()}
			}
			onChange(docs)
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			it.Stop()
		})
	}
	return release, nil
}

type firestoreTx struct {
	s *FirestoreStore
	t *firestore.Transaction
}

func (tx *firestoreTx) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := tx.t.Get(tx.s.colRef(collection).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("tx get %s/%s: %w", collection, id, err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (tx *firestoreTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return tx.t.Set(tx.s.colRef(collection).Doc(id), fields, firestore.MergeAll)
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{s: s, t: t})
	})
}
