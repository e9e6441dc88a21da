// Package txn turns a primitive slot backend into a store.Store whose
// operations execute as atomic units.
//
// Writes issued inside a unit are journaled in an overlay that the unit's own
// reads observe. When the unit body succeeds the journal is applied to the
// backend under an exclusive lock; if any entry fails to apply, the entries
// already applied are reverted in reverse order. Units on one Store are
// serialized, so a unit never observes another unit half-applied.
package txn

import (
	"context"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Backend is the primitive slot storage a Store commits to.
//
// Reads return narrative.ErrRecordNotFound / ErrSubscriptionNotFound on a
// miss; Balance returns zero for an identity that has never held funds.
// AdjustBalance must refuse, with narrative.ErrInsufficientFunds, any delta
// that would leave the balance negative.
type Backend interface {
	GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error)
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	Balance(ctx context.Context, who identity.Identity) (types.Lamports, error)

	InsertRecord(ctx context.Context, r *record.Record) error
	DeleteRecord(ctx context.Context, recordID id.RecordID) error
	InsertSubscription(ctx context.Context, s *subscription.Subscription) error
	DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error
	UpdateSubscriptionActive(ctx context.Context, subID id.SubscriptionID, active bool) error
	AdjustBalance(ctx context.Context, who identity.Identity, delta types.Lamports) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// TxBackend is a Backend that can group a unit's writes in one native
// transaction. Writes issued through the Backend handed to fn commit together
// when fn returns nil and roll back otherwise. Store uses it in place of
// compensating reverts when the backend provides it.
type TxBackend interface {
	Backend
	InTx(ctx context.Context, fn func(ctx context.Context, b Backend) error) error
}
