package subscription

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemorySubscriptionStore is a mutex-guarded SubscriptionStore for tests
// and single-process deployments.
type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewInMemorySubscriptionStore creates an empty in-memory store.
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *InMemorySubscriptionStore) GetCurrent(_ context.Context, tenantID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.TenantID == tenantID && sub.Status.IsCurrent() {
			return cloneSub(sub), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *InMemorySubscriptionStore) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return cloneSub(sub), nil
}

func (s *InMemorySubscriptionStore) FindByProviderOrder(_ context.Context, provider, orderID, paymentID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ProviderName == provider && sub.ProviderOrderID == orderID && sub.ProviderPaymentID == paymentID {
			return cloneSub(sub), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *InMemorySubscriptionStore) Insert(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; ok {
		return ErrSubscriptionConflict
	}
	if sub.Status.IsCurrent() {
		for _, existing := range s.subs {
			if existing.TenantID == sub.TenantID && existing.Status.IsCurrent() {
				return ErrSubscriptionConflict
			}
		}
	}

	s.subs[sub.ID] = cloneSub(sub)
	return nil
}

func (s *InMemorySubscriptionStore) TransitionStatus(_ context.Context, id uuid.UUID, from []Status, to Status) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	if !slices.Contains(from, sub.Status) {
		return nil, ErrInvalidTransition
	}
	if err := ValidateTransition(sub.Status, to); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub.Status = to
	sub.UpdatedAt = now
	if to == StatusCanceled {
		sub.AutoRenew = false
		sub.CancelledAt = &now
	}
	return cloneSub(sub), nil
}

func (s *InMemorySubscriptionStore) SupersedeCurrent(_ context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, sub := range s.subs {
		if sub.TenantID == tenantID && sub.Status.IsCurrent() {
			sub.Status = StatusCanceled
			sub.AutoRenew = false
			sub.CancelledAt = &now
			sub.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *InMemorySubscriptionStore) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sub := range s.subs {
		if sub.Status.IsCurrent() && sub.EndDate != nil && !sub.EndDate.After(now) {
			sub.Status = StatusExpired
			sub.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *InMemorySubscriptionStore) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscription
	for _, sub := range s.subs {
		if sub.TenantID == tenantID {
			out = append(out, cloneSub(sub))
		}
	}
	slices.SortFunc(out, func(a, b *Subscription) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func cloneSub(src *Subscription) *Subscription {
	dst := *src
	if src.EndDate != nil {
		t := *src.EndDate
		dst.EndDate = &t
	}
	if src.TrialEndsAt != nil {
		t := *src.TrialEndsAt
		dst.TrialEndsAt = &t
	}
	if src.CancelledAt != nil {
		t := *src.CancelledAt
		dst.CancelledAt = &t
	}
	if src.Metadata != nil {
		dst.Metadata = make(map[string]string, len(src.Metadata))
		for k, v := range src.Metadata {
			dst.Metadata[k] = v
		}
	}
	return &dst
}

// InMemoryIdempotencyStore is a mutex-guarded IdempotencyStore. The map
// insert under the lock gives Begin its insert-if-absent atomicity.
type InMemoryIdempotencyStore struct {
	mu   sync.Mutex
	recs map[string]*IdempotencyRecord
}

// NewInMemoryIdempotencyStore creates an empty in-memory idempotency store.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{recs: make(map[string]*IdempotencyRecord)}
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, rec *IdempotencyRecord) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.recs[rec.Key]; ok {
		cp := *existing
		return &cp, ErrDuplicateEvent
	}

	cp := *rec
	s.recs[rec.Key] = &cp
	return nil, nil
}

func (s *InMemoryIdempotencyStore) Commit(_ context.Context, key string, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[key]
	if !ok {
		return errors.New("idempotency key not claimed: " + key)
	}
	rec.Outcome = outcome
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recs, key)
	return nil
}
