package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	narrative "github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// CommitHook runs after a unit's journal is applied, still under the
// exclusive lock. A hook error reverts the unit.
type CommitHook func(ctx context.Context) error

// Store serializes atomic units over a Backend.
type Store struct {
	backend Backend
	hooks   []CommitHook

	units sync.Mutex   // one unit at a time
	state sync.RWMutex // readers vs. journal application
}

// Option configures a Store.
type Option func(*Store)

// WithCommitHook adds a hook that runs after every committed unit.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, h)
	}
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend { return s.backend }

// RLock holds off unit commits until the returned func is called.
func (s *Store) RLock() func() {
	s.state.RLock()
	return s.state.RUnlock
}

type txKey struct{ s *Store }

// Atomic runs fn as one unit. A nested call on the same Store (through a
// context derived from an enclosing unit) joins the enclosing unit.
func (s *Store) Atomic(ctx context.Context, fn store.AtomicFunc) error {
	if outer, ok := ctx.Value(txKey{s}).(*Tx); ok {
		return fn(ctx, outer)
	}

	s.units.Lock()
	defer s.units.Unlock()

	tx := newTx(s)
	ctx = context.WithValue(ctx, txKey{s}, tx)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.journal) == 0 {
		return nil
	}

	s.state.Lock()
	defer s.state.Unlock()
	return tx.commit(ctx)
}

// ==================== Reads ====================

func (s *Store) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.backend.GetRecord(ctx, recordID)
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.backend.GetSubscription(ctx, subID)
}

func (s *Store) Balance(ctx context.Context, who identity.Identity) (types.Lamports, error) {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.backend.Balance(ctx, who)
}

// ==================== Single-operation units ====================

func (s *Store) CreateRecord(ctx context.Context, r *record.Record) error {
	return s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.CreateRecord(ctx, r)
	})
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.CreateSubscription(ctx, sub)
	})
}

func (s *Store) SetSubscriptionActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	return s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.SetSubscriptionActive(ctx, subID, active)
	})
}

func (s *Store) Credit(ctx context.Context, who identity.Identity, amount types.Lamports) error {
	return s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.Credit(ctx, who, amount)
	})
}

func (s *Store) Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error {
	return s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.Transfer(ctx, from, to, amount)
	})
}

// ==================== Core ====================

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.backend.Migrate(ctx); err != nil {
		return errors.Join(narrative.ErrMigrationFailed, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) Close() error {
	s.units.Lock()
	defer s.units.Unlock()
	return s.backend.Close()
}

func (s *Store) runHooks(ctx context.Context) error {
	for _, h := range s.hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("narrative/txn: commit hook: %w", err)
		}
	}
	return nil
}
