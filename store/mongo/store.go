// Package mongo is the MongoDB store backend, built on grove's mongo driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	narrative "github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/store/txn"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Collection name constants.
const (
	colRecords       = "narrative_records"
	colSubscriptions = "narrative_subscriptions"
	colAccounts      = "narrative_accounts"
)

// compile-time interface checks
var (
	_ store.Store  = (*Store)(nil)
	_ txn.Backend = (*backend)(nil)
)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	*txn.Store
	db *grove.DB
}

type backend struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	b := &backend{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
	return &Store{Store: txn.New(b), db: db}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all narrative collections.
func (b *backend) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := b.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("narrative/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (b *backend) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}

// Close closes the database connection.
func (b *backend) Close() error {
	return b.db.Close()
}

// ==================== Records ====================

func (b *backend) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	var m recordModel
	err := b.mdb.NewFind(&m).
		Filter(bson.M{"_id": recordID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, narrative.ErrRecordNotFound
		}
		return nil, fmt.Errorf("narrative/mongo: get record: %w", err)
	}
	return fromRecordModel(&m)
}

func (b *backend) InsertRecord(ctx context.Context, r *record.Record) error {
	_, err := b.mdb.NewInsert(toRecordModel(r)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return narrative.ErrAlreadyExists
		}
		return fmt.Errorf("narrative/mongo: insert record: %w", err)
	}
	return nil
}

func (b *backend) DeleteRecord(ctx context.Context, recordID id.RecordID) error {
	_, err := b.mdb.NewDelete((*recordModel)(nil)).
		Filter(bson.M{"_id": recordID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/mongo: delete record: %w", err)
	}
	return nil
}

// ==================== Subscriptions ====================

func (b *backend) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := b.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, narrative.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("narrative/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (b *backend) InsertSubscription(ctx context.Context, s *subscription.Subscription) error {
	_, err := b.mdb.NewInsert(toSubscriptionModel(s)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return narrative.ErrAlreadyExists
		}
		return fmt.Errorf("narrative/mongo: insert subscription: %w", err)
	}
	return nil
}

func (b *backend) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	_, err := b.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/mongo: delete subscription: %w", err)
	}
	return nil
}

func (b *backend) UpdateSubscriptionActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	res, err := b.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Set("active", active).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return narrative.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Accounts ====================

func (b *backend) Balance(ctx context.Context, who identity.Identity) (types.Lamports, error) {
	var m accountModel
	err := b.mdb.NewFind(&m).
		Filter(bson.M{"_id": who.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("narrative/mongo: get balance: %w", err)
	}
	return types.Lamports(m.Balance), nil
}

// AdjustBalance applies delta with $inc. Debits only match a document whose
// balance covers them.
func (b *backend) AdjustBalance(ctx context.Context, who identity.Identity, delta types.Lamports) error {
	if delta.IsZero() {
		return nil
	}
	update := bson.M{
		"$inc": bson.M{"balance": int64(delta)},
		"$set": bson.M{"updated_at": now()},
	}

	if delta.IsPositive() {
		_, err := b.mdb.NewUpdate((*accountModel)(nil)).
			Filter(bson.M{"_id": who.String()}).
			SetUpdate(update).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("narrative/mongo: credit %s: %w", who, err)
		}
		return nil
	}

	res, err := b.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": who.String(), "balance": bson.M{"$gte": -int64(delta)}}).
		SetUpdate(update).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/mongo: debit %s: %w", who, err)
	}
	if res.MatchedCount() == 0 {
		return narrative.ErrInsufficientFunds
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all narrative collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colRecords: {
			{Keys: bson.D{{Key: "authority", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "start_time", Value: -1}}},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "end_time", Value: 1}}},
		},
		colAccounts: {
			{
				Keys:    bson.D{{Key: "_id", Value: 1}, {Key: "balance", Value: 1}},
				Options: options.Index().SetName("idx_narrative_accounts_balance"),
			},
		},
	}
}
