// Package store defines the ledger substrate every narrative operation runs
// against: storage slots for records and subscriptions, native balances, and
// atomic units that commit all of their writes or none.
package store

import (
	"context"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// AtomicFunc is the body of an atomic unit. Every write it issues through tx
// is committed together when it returns nil and discarded when it returns an
// error.
type AtomicFunc func(ctx context.Context, tx Store) error

// Store is the unified storage interface for narrative slots and balances.
// Instead of embedding the per-package interfaces, all methods are declared
// explicitly to avoid naming conflicts.
type Store interface {
	// Record methods
	CreateRecord(ctx context.Context, r *record.Record) error
	GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error)

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	SetSubscriptionActive(ctx context.Context, subID id.SubscriptionID, active bool) error

	// Account methods
	Balance(ctx context.Context, who identity.Identity) (types.Lamports, error)
	Credit(ctx context.Context, who identity.Identity, amount types.Lamports) error
	Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error

	// Atomic runs fn as one unit. Units on the same store are serialized.
	Atomic(ctx context.Context, fn AtomicFunc) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
