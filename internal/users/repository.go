package users

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Account is a stored user: the public identity plus its password hash.
type Account struct {
	models.Identity `bson:",inline"`
	PasswordHash    string `json:"-" bson:"passwordHash"`
	Message         string `json:"message,omitempty" bson:"message,omitempty"`
}

// UserRepository defines persistence operations for accounts
type UserRepository interface {
	// Create assigns the account ID. It fails with ErrEmailTaken for a known email.
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	Update(ctx context.Context, a *Account) error
	ListByStatus(ctx context.Context, status models.Status) ([]*Account, error)
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// MemoryUserRepository keeps accounts in process memory.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*Account
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[int64]*Account{}}
}

func cloneAccount(a *Account) *Account {
	c := *a
	c.Identity = *a.Identity.Clone()
	return &c
}

func (r *MemoryUserRepository) Create(ctx context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if normEmail(existing.Email) == normEmail(a.Email) {
			return ErrEmailTaken
		}
	}
	r.nextID++
	a.ID = r.nextID
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if normEmail(a.Email) == normEmail(email) {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byID[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return ErrNotFound
	}
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *MemoryUserRepository) ListByStatus(ctx context.Context, status models.Status) ([]*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Account
	for _, a := range r.byID {
		if status == "" || a.Status == status {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MongoUserRepository implements UserRepository using MongoDB. Numeric IDs come
// from a counter document in the same database.
type MongoUserRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col, counters: col.Database().Collection("counters")}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoUserRepository) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": r.col.Name()}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	return doc.Seq, err
}

func (r *MongoUserRepository) Create(ctx context.Context, a *Account) error {
	a.Email = normEmail(a.Email)
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	a.ID = id
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var a Account
	if err := r.col.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, bson.M{"email": normEmail(email)})
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoUserRepository) Update(ctx context.Context, a *Account) error {
	now := time.Now().UTC()
	a.UpdatedAt = &now
	res, err := r.col.ReplaceOne(ctx, bson.M{"id": a.ID}, a)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) ListByStatus(ctx context.Context, status models.Status) ([]*Account, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []*Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
