package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is one document stored as a JSON blob. Timestamps survive the
// round-trip as RFC 3339 strings; compareValues and the model decoders
// tolerate that shape.
type documentRow struct {
	Collection string `gorm:"primaryKey;size:255"`
	ID         string `gorm:"primaryKey;size:64"`
	Data       []byte `gorm:"type:jsonb"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// PostgresStore implements Store on a single relational table of JSON
// documents, the way the app's Supabase iteration kept them. Equality
// filters and ordering are evaluated in process after the collection scan;
// Subscribe polls the query at a fixed interval and notifies when the result
// set changes.
type PostgresStore struct {
	db           *gorm.DB
	pollInterval time.Duration
}

// NewPostgresStore migrates the documents table and returns the store.
func NewPostgresStore(db *gorm.DB, pollInterval time.Duration) (*PostgresStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &PostgresStore{db: db, pollInterval: pollInterval}, nil
}

func rowToDocument(row documentRow) (Document, error) {
	data := make(map[string]any)
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return Document{}, fmt.Errorf("decode %s/%s: %w", row.Collection, row.ID, err)
		}
	}
	return Document{ID: row.ID, Data: data}, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	return getRow(ctx, s.db, collection, id)
}

func getRow(ctx context.Context, db *gorm.DB, collection, id string) (Document, error) {
	var row documentRow
	err := db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return rowToDocument(row)
}

func (s *PostgresStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", q.Collection).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	var docs []Document
	for _, row := range rows {
		doc, err := rowToDocument(row)
		if err != nil {
			return nil, err
		}
		if matches(doc, q) {
			docs = append(docs, doc)
		}
	}
	return sortDocs(docs, q), nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document for %s: %w", collection, err)
	}
	row := documentRow{Collection: collection, ID: id, Data: data}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return mergeRow(ctx, tx, collection, id, fields)
	})
}

// mergeRow merges fields into the stored JSON under a row lock, creating the
// row when absent.
func mergeRow(ctx context.Context, tx *gorm.DB, collection, id string, fields map[string]any) error {
	var row documentRow
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lock %s/%s: %w", collection, id, err)
	}

	data := make(map[string]any)
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}
	for k, v := range fields {
		data[k] = v
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	merged := documentRow{Collection: collection, ID: id, Data: encoded}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&merged).Error
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{})
	if res.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

// Subscribe polls the query once per poll interval. The initial result set is
// delivered immediately; later deliveries happen only when the serialized
// result set differs from the previous one.
func (s *PostgresStore) Subscribe(ctx context.Context, q Query, onChange func([]Document), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	fingerprint := func(docs []Document) string {
		b, err := json.Marshal(docs)
		if err != nil {
			return ""
		}
		return string(b)
	}

	docs, err := s.RunQuery(ctx, q)
	if err != nil {
		cancel()
		return nil, err
	}
	onChange(docs)
	last := fingerprint(docs)

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			docs, err := s.RunQuery(ctx, q)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				continue
			}
			if fp := fingerprint(docs); fp != last {
				last = fp
				onChange(docs)
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(cancel)
	}
	return release, nil
}

type postgresTx struct {
	tx *gorm.DB
}

func (t *postgresTx) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("tx get %s/%s: %w", collection, id, err)
	}
	return rowToDocument(row)
}

func (t *postgresTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return mergeRow(ctx, t.tx, collection, id, fields)
}

// RunTransaction wraps fn in a database transaction; transactional Gets take
// row locks, so concurrent read-modify-write cycles serialize per document.
func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &postgresTx{tx: tx})
	})
}
