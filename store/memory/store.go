// Package memory is an in-process store backend. Open adds file persistence:
// the whole state is rewritten as a JSON snapshot after every committed unit.
package memory

import (
	"context"
	"sync"

	narrative "github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store/txn"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Store is a map-backed store.Store.
type Store struct {
	*txn.Store
	b *backend
}

type backend struct {
	mu sync.RWMutex

	records       map[string]*record.Record
	subscriptions map[string]*subscription.Subscription
	accounts      map[identity.Identity]types.Lamports
}

// compile-time interface check
var _ txn.Backend = (*backend)(nil)

func newBackend() *backend {
	return &backend{
		records:       make(map[string]*record.Record),
		subscriptions: make(map[string]*subscription.Subscription),
		accounts:      make(map[identity.Identity]types.Lamports),
	}
}

// New returns an empty, unpersisted store.
func New() *Store {
	b := newBackend()
	return &Store{Store: txn.New(b), b: b}
}

// Len reports how many records, subscriptions and funded accounts are held.
func (s *Store) Len() (records, subscriptions, accounts int) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	return len(s.b.records), len(s.b.subscriptions), len(s.b.accounts)
}

// ==================== Reads ====================

func (b *backend) GetRecord(_ context.Context, recordID id.RecordID) (*record.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if r, ok := b.records[recordID.String()]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, narrative.ErrRecordNotFound
}

func (b *backend) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if sub, ok := b.subscriptions[subID.String()]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, narrative.ErrSubscriptionNotFound
}

func (b *backend) Balance(_ context.Context, who identity.Identity) (types.Lamports, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.accounts[who], nil
}

// ==================== Writes ====================

func (b *backend) InsertRecord(_ context.Context, r *record.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := r.ID.String()
	if _, exists := b.records[key]; exists {
		return narrative.ErrAlreadyExists
	}
	cp := *r
	b.records[key] = &cp
	return nil
}

func (b *backend) DeleteRecord(_ context.Context, recordID id.RecordID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, recordID.String())
	return nil
}

func (b *backend) InsertSubscription(_ context.Context, sub *subscription.Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := sub.ID.String()
	if _, exists := b.subscriptions[key]; exists {
		return narrative.ErrAlreadyExists
	}
	cp := *sub
	b.subscriptions[key] = &cp
	return nil
}

func (b *backend) DeleteSubscription(_ context.Context, subID id.SubscriptionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscriptions, subID.String())
	return nil
}

func (b *backend) UpdateSubscriptionActive(_ context.Context, subID id.SubscriptionID, active bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscriptions[subID.String()]
	if !ok {
		return narrative.ErrSubscriptionNotFound
	}
	sub.Active = active
	return nil
}

func (b *backend) AdjustBalance(_ context.Context, who identity.Identity, delta types.Lamports) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, ok := b.accounts[who].CheckedAdd(delta)
	if !ok {
		return narrative.ErrInvalidAmount
	}
	if next.IsNegative() {
		return narrative.ErrInsufficientFunds
	}
	if next.IsZero() {
		delete(b.accounts, who)
		return nil
	}
	b.accounts[who] = next
	return nil
}

// ==================== Core ====================

func (b *backend) Migrate(context.Context) error { return nil }
func (b *backend) Ping(context.Context) error    { return nil }
func (b *backend) Close() error                  { return nil }
