package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoUserField = "userId"
	mongoDocField  = "docId"
)

// MongoStore maps each collection to a MongoDB collection. Documents are
// stored under _id "<userId>/<docId>" with userId and docId copied into the
// document so ranges can be served from the compound index.
type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, timeout: 5 * time.Second}
}

func mongoID(key Key) string {
	return key.UserID + "/" + key.ID
}

// EnsureIndexes creates the (userId, docId) index on every collection the
// service uses. Called on startup after Mongo has connected.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, name := range []string{CollectionDailyMacros, CollectionProfiles, CollectionFoodLogs} {
		model := mongo.IndexModel{
			Keys: bson.D{
				{Key: mongoUserField, Value: 1},
				{Key: mongoDocField, Value: 1},
			},
			Options: options.Index().SetName("idx_user_doc"),
		}
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("ensure index on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, key Key) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw bson.M
	err := s.db.Collection(key.Collection).FindOne(ctx, bson.M{"_id": mongoID(key)}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Set(ctx context.Context, key Key, fields Document, merge bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	col := s.db.Collection(key.Collection)
	filter := bson.M{"_id": mongoID(key)}

	if !merge {
		doc := bson.M{mongoUserField: key.UserID, mongoDocField: key.ID}
		for k, v := range fields {
			doc[k] = v
		}
		_, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return unavailable(err)
		}
		return nil
	}

	set := bson.M{mongoUserField: key.UserID, mongoDocField: key.ID}
	flatten("", fields, set)
	_, err := col.UpdateOne(ctx, filter, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *MongoStore) Range(ctx context.Context, userID, collection, startID, endID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{
		mongoUserField: userID,
		mongoDocField:  bson.M{"$gte": startID, "$lte": endID},
	}
	opts := options.Find().SetSort(bson.D{{Key: mongoDocField, Value: 1}})

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	var out []Item
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, unavailable(err)
		}
		id, _ := raw[mongoDocField].(string)
		out = append(out, Item{ID: id, Doc: fromBSON(raw)})
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// Increment applies the deltas in a single pipeline update so concurrent
// writers on the same day never lose an increment.
func (s *MongoStore) Increment(ctx context.Context, key Key, deltas map[string]float64, floor float64, create bool, now time.Time) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	set := bson.M{
		mongoUserField: bson.M{"$literal": key.UserID},
		mongoDocField:  bson.M{"$literal": key.ID},
		FieldCreatedAt: bson.M{"$ifNull": bson.A{"$" + FieldCreatedAt, now}},
		FieldUpdatedAt: now,
	}
	for field, delta := range deltas {
		sum := bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, delta}}
		set[field] = bson.M{"$max": bson.A{
			floor,
			bson.M{"$round": bson.A{sum, RoundPlaces}},
		}}
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}

	opts := options.FindOneAndUpdate().
		SetUpsert(create).
		SetReturnDocument(options.After)

	var raw bson.M
	err := s.db.Collection(key.Collection).
		FindOneAndUpdate(ctx, bson.M{"_id": mongoID(key)}, pipeline, opts).
		Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return fromBSON(raw), nil
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// flatten turns nested documents into dotted $set paths so a merge never
// drops sibling fields of a nested map.
func flatten(prefix string, fields Document, out bson.M) {
	for k, v := range fields {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if sub := asDocument(v); sub != nil && len(sub) > 0 {
			flatten(path, sub, out)
			continue
		}
		out[path] = v
	}
}

func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		switch k {
		case "_id", mongoUserField, mongoDocField:
			continue
		}
		doc[k] = normalize(v)
	}
	return doc
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(Document, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	}
	return v
}
