package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores each collection as a MongoDB collection. Keys are ObjectID
// hex strings.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to uri and verifies the connection.
func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Mongo{client: client, db: client.Database(dbName)}, nil
}

// List returns all documents of a collection.
func (m *Mongo) List(ctx context.Context, collection string) ([]Document, error) {
	cur, err := m.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding %s document: %w", collection, err)
		}
		docs = append(docs, fromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", collection, err)
	}
	return docs, nil
}

// Get returns a single document.
func (m *Mongo) Get(ctx context.Context, collection, key string) (Document, error) {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return Document{}, ErrNotFound
	}

	var raw bson.M
	err = m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting %s/%s: %w", collection, key, err)
	}
	return fromBSON(raw), nil
}

// Add inserts a document under a new ObjectID.
func (m *Mongo) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := primitive.NewObjectID()
	doc := bson.M{"_id": id}
	for k, v := range fields {
		doc[k] = v
	}

	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("adding %s document: %w", collection, err)
	}
	return id.Hex(), nil
}

// Update sets the given fields on an existing document.
func (m *Mongo) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return ErrNotFound
	}

	res, err := m.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(fields)},
	)
	if err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, key, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document.
func (m *Mongo) Delete(ctx context.Context, collection, key string) error {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return ErrNotFound
	}

	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, key, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

// fromBSON strips _id into the key and turns BSON datetimes into time.Time.
func fromBSON(raw bson.M) Document {
	doc := Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			if id, ok := v.(primitive.ObjectID); ok {
				doc.Key = id.Hex()
			} else {
				doc.Key = fmt.Sprint(v)
			}
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			doc.Fields[k] = dt.Time().UTC()
			continue
		}
		doc.Fields[k] = v
	}
	return doc
}
