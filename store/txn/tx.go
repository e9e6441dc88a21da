package txn

import (
	"context"
	"errors"
	"fmt"

	narrative "github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// compile-time interface check
var _ store.Store = (*Tx)(nil)

type entryKind int

const (
	entryInsertRecord entryKind = iota
	entryInsertSubscription
	entrySetActive
	entryAdjust
)

type entry struct {
	kind   entryKind
	record id.RecordID
	sub    id.SubscriptionID
	active bool
	prev   bool
	who    identity.Identity
	delta  types.Lamports
}

// Tx is the view an atomic unit body operates on. Reads see the backend
// with the unit's own pending writes layered on top.
type Tx struct {
	s       *Store
	journal []entry

	records map[string]*record.Record
	subs    map[string]*subscription.Subscription
	fresh   map[string]bool // subscriptions inserted by this unit
	deltas  map[identity.Identity]types.Lamports
}

func newTx(s *Store) *Tx {
	return &Tx{
		s:       s,
		records: make(map[string]*record.Record),
		subs:    make(map[string]*subscription.Subscription),
		fresh:   make(map[string]bool),
		deltas:  make(map[identity.Identity]types.Lamports),
	}
}

// ==================== Reads ====================

func (tx *Tx) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	if r, ok := tx.records[recordID.String()]; ok {
		cp := *r
		return &cp, nil
	}
	return tx.s.backend.GetRecord(ctx, recordID)
}

func (tx *Tx) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	if sub, ok := tx.subs[subID.String()]; ok {
		cp := *sub
		return &cp, nil
	}
	return tx.s.backend.GetSubscription(ctx, subID)
}

func (tx *Tx) Balance(ctx context.Context, who identity.Identity) (types.Lamports, error) {
	bal, err := tx.s.backend.Balance(ctx, who)
	if err != nil {
		return 0, err
	}
	return bal.Add(tx.deltas[who]), nil
}

// ==================== Writes ====================

func (tx *Tx) CreateRecord(ctx context.Context, r *record.Record) error {
	_, err := tx.GetRecord(ctx, r.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: record %s", narrative.ErrAlreadyExists, r.ID)
	case !errors.Is(err, narrative.ErrRecordNotFound):
		return err
	}
	cp := *r
	tx.records[r.ID.String()] = &cp
	tx.journal = append(tx.journal, entry{kind: entryInsertRecord, record: r.ID})
	return nil
}

func (tx *Tx) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := tx.GetSubscription(ctx, sub.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: subscription %s", narrative.ErrAlreadyExists, sub.ID)
	case !errors.Is(err, narrative.ErrSubscriptionNotFound):
		return err
	}
	cp := *sub
	key := sub.ID.String()
	tx.subs[key] = &cp
	tx.fresh[key] = true
	tx.journal = append(tx.journal, entry{kind: entryInsertSubscription, sub: sub.ID})
	return nil
}

func (tx *Tx) SetSubscriptionActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	cur, err := tx.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	key := subID.String()
	prev := cur.Active
	cur.Active = active
	tx.subs[key] = cur
	// A subscription inserted by this unit is written with its final state.
	if tx.fresh[key] {
		return nil
	}
	tx.journal = append(tx.journal, entry{kind: entrySetActive, sub: subID, active: active, prev: prev})
	return nil
}

func (tx *Tx) Credit(ctx context.Context, who identity.Identity, amount types.Lamports) error {
	if !amount.IsPositive() {
		return narrative.ErrInvalidAmount
	}
	if err := tx.checkCredit(ctx, who, amount); err != nil {
		return err
	}
	tx.adjust(who, amount)
	return nil
}

func (tx *Tx) Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error {
	if !amount.IsPositive() {
		return narrative.ErrInvalidAmount
	}
	bal, err := tx.Balance(ctx, from)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: %s holds %s, needs %s", narrative.ErrInsufficientFunds, from, bal, amount)
	}
	if !from.Equal(to) {
		if err := tx.checkCredit(ctx, to, amount); err != nil {
			return err
		}
	}
	tx.adjust(from, -amount)
	tx.adjust(to, amount)
	return nil
}

// checkCredit refuses a credit that would overflow who's balance.
func (tx *Tx) checkCredit(ctx context.Context, who identity.Identity, amount types.Lamports) error {
	bal, err := tx.Balance(ctx, who)
	if err != nil {
		return err
	}
	if _, ok := bal.CheckedAdd(amount); !ok {
		return fmt.Errorf("%w: crediting %s to %s overflows its balance", narrative.ErrInvalidAmount, amount, who)
	}
	return nil
}

func (tx *Tx) adjust(who identity.Identity, delta types.Lamports) {
	tx.deltas[who] = tx.deltas[who].Add(delta)
	tx.journal = append(tx.journal, entry{kind: entryAdjust, who: who, delta: delta})
}

// Atomic joins the enclosing unit.
func (tx *Tx) Atomic(ctx context.Context, fn store.AtomicFunc) error {
	return fn(ctx, tx)
}

// ==================== Core ====================

func (tx *Tx) Migrate(context.Context) error {
	return fmt.Errorf("%w: migrate inside an atomic unit", narrative.ErrTransactionFailed)
}

func (tx *Tx) Ping(ctx context.Context) error {
	return tx.s.backend.Ping(ctx)
}

func (tx *Tx) Close() error {
	return fmt.Errorf("%w: close inside an atomic unit", narrative.ErrTransactionFailed)
}

// ==================== Commit ====================

func (tx *Tx) commit(ctx context.Context) error {
	if tb, ok := tx.s.backend.(TxBackend); ok {
		return tb.InTx(ctx, func(ctx context.Context, b Backend) error {
			for _, e := range tx.journal {
				if err := tx.apply(ctx, b, e); err != nil {
					return fmt.Errorf("narrative/txn: commit: %w", err)
				}
			}
			return tx.s.runHooks(ctx)
		})
	}

	b := tx.s.backend
	for i, e := range tx.journal {
		if err := tx.apply(ctx, b, e); err != nil {
			return tx.unwind(ctx, i, fmt.Errorf("narrative/txn: commit: %w", err))
		}
	}
	if err := tx.s.runHooks(ctx); err != nil {
		return tx.unwind(ctx, len(tx.journal), err)
	}
	return nil
}

// unwind reverts the first n applied entries, newest first. Reverts run even
// when ctx is already canceled.
func (tx *Tx) unwind(ctx context.Context, n int, cause error) error {
	ctx = context.WithoutCancel(ctx)
	b := tx.s.backend
	var errs []error
	for i := n - 1; i >= 0; i-- {
		if err := tx.revert(ctx, b, tx.journal[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(cause, narrative.ErrTransactionFailed, errors.Join(errs...))
	}
	return cause
}

func (tx *Tx) apply(ctx context.Context, b Backend, e entry) error {
	switch e.kind {
	case entryInsertRecord:
		return b.InsertRecord(ctx, tx.records[e.record.String()])
	case entryInsertSubscription:
		return b.InsertSubscription(ctx, tx.subs[e.sub.String()])
	case entrySetActive:
		return b.UpdateSubscriptionActive(ctx, e.sub, e.active)
	case entryAdjust:
		return b.AdjustBalance(ctx, e.who, e.delta)
	}
	return fmt.Errorf("narrative/txn: unknown journal entry %d", e.kind)
}

func (tx *Tx) revert(ctx context.Context, b Backend, e entry) error {
	switch e.kind {
	case entryInsertRecord:
		return b.DeleteRecord(ctx, e.record)
	case entryInsertSubscription:
		return b.DeleteSubscription(ctx, e.sub)
	case entrySetActive:
		return b.UpdateSubscriptionActive(ctx, e.sub, e.prev)
	case entryAdjust:
		return b.AdjustBalance(ctx, e.who, -e.delta)
	}
	return nil
}
