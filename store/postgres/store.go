// Package postgres is the PostgreSQL store backend, built on grove.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
	"github.com/xraph/grove/migrate"

	narrative "github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/store/txn"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// compile-time interface checks
var (
	_ store.Store   = (*Store)(nil)
	_ txn.TxBackend = (*backend)(nil)
)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	*txn.Store
	db *grove.DB
}

// querier builds queries against the pool or an open transaction.
type querier interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
	NewDelete(model any) *pgdriver.DeleteQuery
}

type backend struct {
	db *grove.DB
	pg *pgdriver.PgDB
	q  querier
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	pg := pgdriver.Unwrap(db)
	b := &backend{
		db: db,
		pg: pg,
		q:  pg,
	}
	return &Store{Store: txn.New(b), db: db}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (b *backend) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(b.pg)
	if err != nil {
		return fmt.Errorf("narrative/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("narrative/postgres: migration failed: %w", err)
	}
	return nil
}

// InTx applies a unit's writes inside one PostgreSQL transaction.
func (b *backend) InTx(ctx context.Context, fn func(ctx context.Context, tb txn.Backend) error) error {
	t, err := b.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("narrative/postgres: begin: %w", err)
	}
	if err := fn(ctx, &backend{db: b.db, pg: b.pg, q: t}); err != nil {
		_ = t.Rollback()
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("narrative/postgres: commit: %w", err)
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
	m := new(recordModel)
	err := b.q.NewSelect(m).
		Where("id = $1", recordID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, narrative.ErrRecordNotFound
		}
		return nil, fmt.Errorf("narrative/postgres: get record: %w", err)
	}
	return fromRecordModel(m)
}

func (b *backend) InsertRecord(ctx context.Context, r *record.Record) error {
	_, err := b.q.NewInsert(toRecordModel(r)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/postgres: insert record: %w", err)
	}
	return nil
}

func (b *backend) DeleteRecord(ctx context.Context, recordID id.RecordID) error {
	_, err := b.q.NewDelete((*recordModel)(nil)).
		Where("id = $1", recordID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/postgres: delete record: %w", err)
	}
	return nil
}

// ==================== Subscriptions ====================

func (b *backend) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := b.q.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, narrative.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("narrative/postgres: get subscription: %w", err)
	}
	return fromSubscriptionModel(m)
}

func (b *backend) InsertSubscription(ctx context.Context, s *subscription.Subscription) error {
	_, err := b.q.NewInsert(toSubscriptionModel(s)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/postgres: insert subscription: %w", err)
	}
	return nil
}

func (b *backend) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	_, err := b.q.NewDelete((*subscriptionModel)(nil)).
		Where("id = $1", subID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/postgres: delete subscription: %w", err)
	}
	return nil
}

func (b *backend) UpdateSubscriptionActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	res, err := b.q.NewUpdate((*subscriptionModel)(nil)).
		Set("active = $1", active).
		Set("updated_at = $2", now()).
		Where("id = $3", subID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/postgres: update subscription: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return narrative.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Accounts ====================

func (b *backend) Balance(ctx context.Context, who identity.Identity) (types.Lamports, error) {
	m := new(accountModel)
	err := b.q.NewSelect(m).
		Where("address = $1", who.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("narrative/postgres: get balance: %w", err)
	}
	return types.Lamports(m.Balance), nil
}

// AdjustBalance credits with an upsert and debits with a guarded update, so
// a debit that would overdraw matches no row.
func (b *backend) AdjustBalance(ctx context.Context, who identity.Identity, delta types.Lamports) error {
	switch {
	case delta.IsZero():
		return nil
	case delta.IsPositive():
		_, err := b.q.NewInsert(toAccountModel(who, delta)).
			OnConflict("(address) DO UPDATE").
			Set("balance = narrative_accounts.balance + EXCLUDED.balance").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("narrative/postgres: credit %s: %w", who, err)
		}
		return nil
	}

	res, err := b.q.NewUpdate((*accountModel)(nil)).
		Set("balance = balance + $1", int64(delta)).
		Set("updated_at = $2", now()).
		Where("address = $3", who.String()).
		Where("balance + $4 >= 0", int64(delta)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("narrative/postgres: debit %s: %w", who, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return narrative.ErrInsufficientFunds
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows reports the pgx no-rows sentinel, which pgdriver returns as is.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, grove.ErrNoRows)
}
