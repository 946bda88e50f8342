package sessions

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists the single client Session as an opaque record.
// Load returns (nil, nil) when nothing is stored. Saving an empty Session removes the record.
type Repository interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// MongoRepository stores the session as one document keyed by the storage key.
type MongoRepository struct {
	col *mongo.Collection
	key string
}

type mongoRecord struct {
	Key       string    `bson:"_id"`
	Session   Session   `bson:"session"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongoRepository(col *mongo.Collection, key string) *MongoRepository {
	if key == "" {
		key = DefaultKey
	}
	return &MongoRepository{col: col, key: key}
}

func (r *MongoRepository) Load(ctx context.Context) (*Session, error) {
	var rec mongoRecord
	if err := r.col.FindOne(ctx, bson.M{"_id": r.key}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	s := rec.Session
	s.normalize()
	return &s, nil
}

func (r *MongoRepository) Save(ctx context.Context, s *Session) error {
	if isEmpty(s) {
		_, err := r.col.DeleteOne(ctx, bson.M{"_id": r.key})
		return err
	}
	rec := mongoRecord{Key: r.key, Session: *s, UpdatedAt: time.Now().UTC()}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": r.key}, rec, options.Replace().SetUpsert(true))
	return err
}
