package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo implements Client against a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials the given MongoDB URI and verifies the connection.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Get(ctx context.Context, collection, id string, out interface{}) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *Mongo) Insert(ctx context.Context, collection string, doc interface{}) error {
	_, err := m.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

func (m *Mongo) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Find(ctx context.Context, collection string, q Query, out interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}

	filter := bson.M{}
	for _, eq := range q.Eq {
		filter[eq.Field] = eq.Value
	}
	if q.In != nil {
		filter[q.In.Field] = bson.M{"$in": q.In.Values}
	}
	if q.Range != nil {
		bounds := bson.M{}
		if q.Range.Min != nil {
			bounds["$gte"] = q.Range.Min
		}
		if q.Range.Max != nil {
			bounds["$lt"] = q.Range.Max
		}
		filter[q.Range.Field] = bounds
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}
