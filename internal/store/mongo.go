package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Subscribe opens a change stream on
// the collection and re-runs the query after every event, so listeners get
// the same full-result-set contract as the other backends. RunTransaction
// uses a session transaction and therefore needs a replica set deployment.
//
// Nested collection paths map to the last path segment plus a "_parent"
// discriminator field, e.g. "posts/<id>/comments" becomes documents in the
// "comments" collection carrying _parent = "posts/<id>".
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps a connected database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func splitCollectionPath(path string) (name, parent string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path, ""
	}
	return path[idx+1:], path[:idx]
}

func (s *MongoStore) collection(path string) (*mongo.Collection, string) {
	name, parent := splitCollectionPath(path)
	return s.db.Collection(name), parent
}

func mongoFilter(q Query, parent string) bson.M {
	filter := bson.M{}
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}
	if parent != "" {
		filter["_parent"] = parent
	}
	return filter
}

// normalizeBSON maps driver-specific decoded types back to the plain shapes
// the rest of the app works with.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case int32:
		return int(t)
	default:
		return v
	}
}

func mongoDocument(raw bson.M) Document {
	doc := Document{Data: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "_id":
			if id, ok := v.(string); ok {
				doc.ID = id
			} else {
				doc.ID = fmt.Sprint(v)
			}
		case "_parent":
			// internal discriminator, not part of the document
		default:
			doc.Data[k] = normalizeBSON(v)
		}
	}
	return doc
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	coll, _ := s.collection(collection)
	var raw bson.M
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return mongoDocument(raw), nil
}

func (s *MongoStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	coll, parent := s.collection(q.Collection)
	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}
	cursor, err := coll.Find(ctx, mongoFilter(q, parent), findOptions)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	docs := make([]Document, len(raws))
	for i, raw := range raws {
		docs[i] = mongoDocument(raw)
	}
	return docs, nil
}

func (s *MongoStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	coll, parent := s.collection(collection)
	id := uuid.NewString()
	insert := bson.M{"_id": id}
	for k, v := range fields {
		insert[k] = v
	}
	if parent != "" {
		insert["_parent"] = parent
	}
	if _, err := coll.InsertOne(ctx, insert); err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return id, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	coll, parent := s.collection(collection)
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	if parent != "" {
		set["_parent"] = parent
	}
	_, err := coll.UpdateByID(ctx, id, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	coll, _ := s.collection(collection)
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, q Query, onChange func([]Document), onError func(error)) (func(), error) {
	coll, _ := s.collection(q.Collection)
	ctx, cancel := context.WithCancel(ctx)

	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", q.Collection, err)
	}

	deliver := func() bool {
		docs, err := s.RunQuery(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				onError(err)
			}
			return false
		}
		onChange(docs)
		return true
	}

	go func() {
		defer stream.Close(context.Background())
		if !deliver() {
			return
		}
		for stream.Next(ctx) {
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(fmt.Errorf("listen on %s: %w", q.Collection, err))
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(cancel)
	}
	return release, nil
}

type mongoTx struct {
	s *MongoStore
}

func (tx *mongoTx) Get(ctx context.Context, collection, id string) (Document, error) {
	return tx.s.Get(ctx, collection, id)
}

func (tx *mongoTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return tx.s.Update(ctx, collection, id, fields)
}

func (s *MongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &mongoTx{s: s})
	})
	return err
}
