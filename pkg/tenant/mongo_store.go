package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	accountsCollection = "accounts"
	workersCollection  = "workers"
)

type accountDoc struct {
	ID     string `bson:"_id"`
	Email  string `bson:"email"`
	Role   string `bson:"role"`
	Active bool   `bson:"active"`
}

type workerDoc struct {
	ID        string     `bson:"_id"`
	AccountID string     `bson:"account_id,omitempty"`
	CreatorID string     `bson:"creator_id"`
	Email     string     `bson:"email"`
	Active    bool       `bson:"active"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty"`
}

// MongoAccountStore implements AccountStore over the accounts collection.
type MongoAccountStore struct {
	coll *mongo.Collection
}

// NewMongoAccountStore creates the store. Panics on a nil database.
func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	if db == nil {
		panic("tenant: mongo database is required")
	}
	return &MongoAccountStore{coll: db.Collection(accountsCollection)}
}

func (s *MongoAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var doc accountDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	accountID, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", doc.ID, err)
	}
	return &Account{
		ID:     accountID,
		Email:  doc.Email,
		Role:   Role(doc.Role),
		Active: doc.Active,
	}, nil
}

// MongoWorkerStore implements WorkerStore over the workers collection.
type MongoWorkerStore struct {
	coll *mongo.Collection
}

// NewMongoWorkerStore creates the store. Panics on a nil database.
func NewMongoWorkerStore(db *mongo.Database) *MongoWorkerStore {
	if db == nil {
		panic("tenant: mongo database is required")
	}
	return &MongoWorkerStore{coll: db.Collection(workersCollection)}
}

func (s *MongoWorkerStore) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Worker, error) {
	return s.findOne(ctx, bson.D{{Key: "account_id", Value: accountID.String()}})
}

// GetByEmail matches case-insensitively and only returns workers that can
// still resolve: active and not soft-deleted.
func (s *MongoWorkerStore) GetByEmail(ctx context.Context, email string) (*Worker, error) {
	return s.findOne(ctx, bson.D{
		{Key: "email", Value: bson.D{
			{Key: "$regex", Value: "^" + regexp.QuoteMeta(email) + "$"},
			{Key: "$options", Value: "i"},
		}},
		{Key: "active", Value: true},
		{Key: "deleted_at", Value: nil},
	})
}

func (s *MongoWorkerStore) findOne(ctx context.Context, filter bson.D) (*Worker, error) {
	var doc workerDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrWorkerNotFound
		}
		return nil, fmt.Errorf("failed to load worker: %w", err)
	}
	return doc.toWorker()
}

func (d *workerDoc) toWorker() (*Worker, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid worker id %q: %w", d.ID, err)
	}
	creatorID, err := uuid.Parse(d.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id %q: %w", d.CreatorID, err)
	}

	w := &Worker{
		ID:        id,
		CreatorID: creatorID,
		Email:     d.Email,
		Active:    d.Active,
		DeletedAt: d.DeletedAt,
	}
	if d.AccountID != "" {
		accountID, err := uuid.Parse(d.AccountID)
		if err != nil {
			return nil, fmt.Errorf("invalid worker account id %q: %w", d.AccountID, err)
		}
		w.AccountID = accountID
	}
	return w, nil
}
