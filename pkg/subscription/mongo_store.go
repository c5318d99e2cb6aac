package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
)

const (
	subscriptionsCollection = "subscriptions"
	paymentEventsCollection = "payment_events"

	// eventRetention keeps processed event keys well past every provider's
	// redelivery window; FindByProviderOrder covers replays after pruning.
	eventRetention = 90 * 24 * time.Hour
)

// subscriptionDoc is the persisted shape of a Subscription. The current
// flag mirrors Status.IsCurrent and backs the partial unique index that
// enforces one current subscription per tenant at the storage layer.
type subscriptionDoc struct {
	ID          string     `bson:"_id"`
	TenantID    string     `bson:"tenant_id"`
	PlanID      string     `bson:"plan_id"`
	PlanType    string     `bson:"plan_type"`
	Status      string     `bson:"status"`
	Current     bool       `bson:"current"`
	StartDate   time.Time  `bson:"start_date"`
	EndDate     *time.Time `bson:"end_date,omitempty"`
	TrialEndsAt *time.Time `bson:"trial_ends_at,omitempty"`
	AutoRenew   bool       `bson:"auto_renew"`
	Amount      int64      `bson:"amount"`
	Currency    string     `bson:"currency,omitempty"`
	Cycle       string     `bson:"cycle,omitempty"`

	ProviderName           string `bson:"provider_name,omitempty"`
	ProviderCustomerID     string `bson:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string `bson:"provider_subscription_id,omitempty"`
	ProviderOrderID        string `bson:"provider_order_id,omitempty"`
	ProviderPaymentID      string `bson:"provider_payment_id,omitempty"`

	Metadata map[string]string `bson:"metadata,omitempty"`

	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty"`
}

func toSubscriptionDoc(sub *Subscription) *subscriptionDoc {
	return &subscriptionDoc{
		ID:          sub.ID.String(),
		TenantID:    sub.TenantID.String(),
		PlanID:      sub.PlanID,
		PlanType:    string(sub.PlanType),
		Status:      string(sub.Status),
		Current:     sub.Status.IsCurrent(),
		StartDate:   sub.StartDate,
		EndDate:     sub.EndDate,
		TrialEndsAt: sub.TrialEndsAt,
		AutoRenew:   sub.AutoRenew,
		Amount:      sub.Amount,
		Currency:    sub.Currency,
		Cycle:       string(sub.Cycle),

		ProviderName:           sub.ProviderName,
		ProviderCustomerID:     sub.ProviderCustomerID,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		ProviderOrderID:        sub.ProviderOrderID,
		ProviderPaymentID:      sub.ProviderPaymentID,

		Metadata: sub.Metadata,

		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
		CancelledAt: sub.CancelledAt,
	}
}

func (d *subscriptionDoc) toSubscription() (*Subscription, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription id %q: %w", d.ID, err)
	}
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %w", d.TenantID, err)
	}

	return &Subscription{
		ID:          id,
		TenantID:    tenantID,
		PlanID:      d.PlanID,
		PlanType:    plan.Type(d.PlanType),
		Status:      Status(d.Status),
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		TrialEndsAt: d.TrialEndsAt,
		AutoRenew:   d.AutoRenew,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Cycle:       plan.BillingCycle(d.Cycle),

		ProviderName:           d.ProviderName,
		ProviderCustomerID:     d.ProviderCustomerID,
		ProviderSubscriptionID: d.ProviderSubscriptionID,
		ProviderOrderID:        d.ProviderOrderID,
		ProviderPaymentID:      d.ProviderPaymentID,

		Metadata: d.Metadata,

		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		CancelledAt: d.CancelledAt,
	}, nil
}

// MongoSubscriptionStore implements SubscriptionStore on MongoDB using
// conditional writes so that concurrent transitions stay monotonic without
// multi-document transactions.
type MongoSubscriptionStore struct {
	coll *mongo.Collection
}

// NewMongoSubscriptionStore creates the store. Panics on a nil database.
func NewMongoSubscriptionStore(db *mongo.Database) *MongoSubscriptionStore {
	if db == nil {
		panic("subscription: mongo database is required")
	}
	return &MongoSubscriptionStore{coll: db.Collection(subscriptionsCollection)}
}

// EnsureIndexes creates the storage-level invariants: at most one current
// subscription per tenant, and fast provider-order replay lookups.
func (s *MongoSubscriptionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "current", Value: true}}),
		},
		{
			Keys: bson.D{
				{Key: "provider_name", Value: 1},
				{Key: "provider_order_id", Value: 1},
				{Key: "provider_payment_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "current", Value: 1},
				{Key: "end_date", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription indexes: %w", err)
	}
	return nil
}

func (s *MongoSubscriptionStore) GetCurrent(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	return s.findOne(ctx, bson.D{
		{Key: "tenant_id", Value: tenantID.String()},
		{Key: "current", Value: true},
	})
}

func (s *MongoSubscriptionStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (s *MongoSubscriptionStore) FindByProviderOrder(ctx context.Context, provider, orderID, paymentID string) (*Subscription, error) {
	return s.findOne(ctx, bson.D{
		{Key: "provider_name", Value: provider},
		{Key: "provider_order_id", Value: orderID},
		{Key: "provider_payment_id", Value: paymentID},
	})
}

func (s *MongoSubscriptionStore) findOne(ctx context.Context, filter bson.D) (*Subscription, error) {
	var doc subscriptionDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return doc.toSubscription()
}

func (s *MongoSubscriptionStore) Insert(ctx context.Context, sub *Subscription) error {
	if _, err := s.coll.InsertOne(ctx, toSubscriptionDoc(sub)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSubscriptionConflict
		}
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (s *MongoSubscriptionStore) TransitionStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Subscription, error) {
	for _, f := range from {
		if err := ValidateTransition(f, to); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	set := bson.D{
		{Key: "status", Value: string(to)},
		{Key: "current", Value: to.IsCurrent()},
		{Key: "updated_at", Value: now},
	}
	if to == StatusCanceled {
		set = append(set,
			bson.E{Key: "auto_renew", Value: false},
			bson.E{Key: "cancelled_at", Value: now},
		)
	}

	fromStrs := make([]string, len(from))
	for i, f := range from {
		fromStrs[i] = string(f)
	}

	var doc subscriptionDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{
			{Key: "_id", Value: id.String()},
			{Key: "status", Value: bson.D{{Key: "$in", Value: fromStrs}}},
		},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a missing record from a lost transition race.
			if _, getErr := s.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to transition subscription status: %w", err)
	}

	return doc.toSubscription()
}

func (s *MongoSubscriptionStore) SupersedeCurrent(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	res, err := s.coll.UpdateMany(ctx,
		bson.D{
			{Key: "tenant_id", Value: tenantID.String()},
			{Key: "current", Value: true},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(StatusCanceled)},
			{Key: "current", Value: false},
			{Key: "auto_renew", Value: false},
			{Key: "cancelled_at", Value: now},
			{Key: "updated_at", Value: now},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede current subscription: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoSubscriptionStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.D{
			{Key: "current", Value: true},
			{Key: "end_date", Value: bson.D{
				{Key: "$ne", Value: nil},
				{Key: "$lte", Value: now},
			}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(StatusExpired)},
			{Key: "current", Value: false},
			{Key: "updated_at", Value: now},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire due subscriptions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoSubscriptionStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "tenant_id", Value: tenantID.String()}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer cur.Close(ctx)

	var out []*Subscription
	for cur.Next(ctx) {
		var doc subscriptionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		sub, err := doc.toSubscription()
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return out, nil
}

// eventDoc is the persisted shape of an IdempotencyRecord.
type eventDoc struct {
	Key           string    `bson:"_id"`
	Provider      string    `bson:"provider"`
	EventType     string    `bson:"event_type"`
	PayloadDigest string    `bson:"payload_digest,omitempty"`
	FirstSeenAt   time.Time `bson:"first_seen_at"`
	OutcomeStatus string    `bson:"outcome_status"`
	OutcomeSubID  string    `bson:"outcome_subscription_id,omitempty"`
	OutcomeNote   string    `bson:"outcome_note,omitempty"`
}

func (d *eventDoc) toRecord() (*IdempotencyRecord, error) {
	rec := &IdempotencyRecord{
		Key:           d.Key,
		Provider:      d.Provider,
		EventType:     payment.EventType(d.EventType),
		PayloadDigest: d.PayloadDigest,
		FirstSeenAt:   d.FirstSeenAt,
		Outcome: Outcome{
			Status: OutcomeStatus(d.OutcomeStatus),
			Note:   d.OutcomeNote,
		},
	}
	if d.OutcomeSubID != "" {
		id, err := uuid.Parse(d.OutcomeSubID)
		if err != nil {
			return nil, fmt.Errorf("invalid subscription id %q: %w", d.OutcomeSubID, err)
		}
		rec.Outcome.SubscriptionID = id
	}
	return rec, nil
}

// MongoIdempotencyStore implements IdempotencyStore on MongoDB. Begin's
// atomicity comes from the unique _id constraint: a plain InsertOne either
// wins or surfaces a duplicate-key error.
type MongoIdempotencyStore struct {
	coll *mongo.Collection
}

// NewMongoIdempotencyStore creates the store. Panics on a nil database.
func NewMongoIdempotencyStore(db *mongo.Database) *MongoIdempotencyStore {
	if db == nil {
		panic("subscription: mongo database is required")
	}
	return &MongoIdempotencyStore{coll: db.Collection(paymentEventsCollection)}
}

// EnsureIndexes creates the TTL index that prunes processed event keys
// after the retention window.
func (s *MongoIdempotencyStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "first_seen_at", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(int32(eventRetention / time.Second)),
	})
	if err != nil {
		return fmt.Errorf("failed to create payment event indexes: %w", err)
	}
	return nil
}

func (s *MongoIdempotencyStore) Begin(ctx context.Context, rec *IdempotencyRecord) (*IdempotencyRecord, error) {
	doc := &eventDoc{
		Key:           rec.Key,
		Provider:      rec.Provider,
		EventType:     string(rec.EventType),
		PayloadDigest: rec.PayloadDigest,
		FirstSeenAt:   rec.FirstSeenAt,
		OutcomeStatus: string(rec.Outcome.Status),
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to claim payment event: %w", err)
		}

		var existing eventDoc
		if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: rec.Key}}).Decode(&existing); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// The winner released the key between our insert and read;
				// treat it as in flight and let the provider redeliver.
				return nil, ErrDuplicateEvent
			}
			return nil, fmt.Errorf("failed to load payment event: %w", err)
		}

		prior, convErr := existing.toRecord()
		if convErr != nil {
			return nil, convErr
		}
		return prior, ErrDuplicateEvent
	}

	return nil, nil
}

func (s *MongoIdempotencyStore) Commit(ctx context.Context, key string, outcome Outcome) error {
	set := bson.D{
		{Key: "outcome_status", Value: string(outcome.Status)},
		{Key: "outcome_note", Value: outcome.Note},
	}
	if outcome.SubscriptionID != uuid.Nil {
		set = append(set, bson.E{Key: "outcome_subscription_id", Value: outcome.SubscriptionID.String()})
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("failed to commit payment event outcome: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment event key not claimed: %s", key)
	}
	return nil
}

func (s *MongoIdempotencyStore) Release(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("failed to release payment event key: %w", err)
	}
	return nil
}
