package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/plugin"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// ProgramID is the fixed identity the service is deployed under.
const ProgramID = "NarrShift1111111111111111111111111111111111"

// Engine executes record and subscription operations, each as one atomic
// unit on its store.
type Engine struct {
	store    store.Store
	treasury identity.Identity
	gateway  payment.Gateway // nil: pass through to the unit's own store
	pricing  subscription.Pricing
	refund   subscription.RefundPolicy
	plugins  *plugin.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Engine over s that collects subscription payments into
// treasury.
func New(s store.Store, treasury identity.Identity, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		treasury: treasury,
		pricing:  subscription.DefaultPricing(),
		refund:   subscription.RefundNone,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPricing replaces the default subscription tiers.
func WithPricing(p subscription.Pricing) Option {
	return func(e *Engine) { e.pricing = p }
}

// WithRefundPolicy sets what cancellation pays back. Unknown policies are
// ignored.
func WithRefundPolicy(p subscription.RefundPolicy) Option {
	return func(e *Engine) {
		if p.Valid() {
			e.refund = p
		}
	}
}

// WithClock replaces the network clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithGateway routes subscription payments and refunds through g. The
// gateway receives the unit's context and must hand it to its ledger.
func WithGateway(g payment.Gateway) Option {
	return func(e *Engine) { e.gateway = g }
}

// Store returns the engine's store.
func (e *Engine) Store() store.Store { return e.store }

// Treasury returns the identity subscription payments are collected into.
func (e *Engine) Treasury() identity.Identity { return e.treasury }

// Pricing returns the active subscription tiers.
func (e *Engine) Pricing() subscription.Pricing { return e.pricing }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("narrative started",
		"program_id", ProgramID,
		"treasury", e.treasury.String(),
		"refund_policy", string(e.refund),
	)
	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Records
// ──────────────────────────────────────────────────

// CreateRecord stores a new narrative record signed by author.
func (e *Engine) CreateRecord(ctx context.Context, in record.Input, author identity.Identity) (*record.Record, error) {
	if err := validateSigner(author); err != nil {
		return nil, err
	}
	if err := ValidateRecordInput(in); err != nil {
		return nil, err
	}

	r := &record.Record{
		ID:          id.NewRecordID(),
		Score:       in.Score,
		Platform:    in.Platform,
		Alternative: in.Alternative,
		Timestamp:   in.Timestamp,
		Authority:   author,
	}

	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.CreateRecord(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	e.logger.Info(fmt.Sprintf("Narrative stored: %s -> %s (score: %d)", r.Platform, r.Alternative, r.Score),
		"record_id", r.ID.String(),
		"authority", r.Authority.String(),
	)
	e.plugins.EmitRecordCreated(ctx, r)

	return r, nil
}

// GetRecord returns the record with the given handle.
func (e *Engine) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	return e.store.GetRecord(ctx, recordID)
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

// Subscribe charges subscriber the tier price for durationDays and opens a
// subscription starting now. Payment and creation commit together. A tier
// priced at zero opens the subscription without a transfer.
func (e *Engine) Subscribe(ctx context.Context, subscriber identity.Identity, durationDays uint16) (*subscription.Subscription, error) {
	if err := validateSigner(subscriber); err != nil {
		return nil, err
	}
	if err := validateDuration(durationDays); err != nil {
		return nil, err
	}

	price := e.pricing.Price(durationDays)
	start := e.now().Unix()
	sub := &subscription.Subscription{
		ID:         id.NewSubscriptionID(),
		Subscriber: subscriber,
		StartTime:  start,
		EndTime:    subscription.Window(start, durationDays),
		Active:     true,
		Price:      price,
	}
	charge := payment.Transfer{From: subscriber, To: e.treasury, Amount: price}
	free := price.IsZero()

	var payErr error
	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if !free {
			if err := e.gatewayFor(tx).Transfer(ctx, charge.From, charge.To, charge.Amount); err != nil {
				payErr = err
				return err
			}
		}
		return tx.CreateSubscription(ctx, sub)
	})
	if err != nil {
		if payErr != nil {
			e.logger.Warn("subscription payment failed",
				"subscriber", subscriber.String(),
				"amount", int64(price),
				"error", payErr,
			)
			e.plugins.EmitPaymentFailed(ctx, charge, payErr)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	e.logger.Info(fmt.Sprintf("Subscription created for %d days", durationDays),
		"subscription_id", sub.ID.String(),
		"subscriber", subscriber.String(),
		"amount", int64(price),
	)
	if !free {
		e.plugins.EmitPaymentTransferred(ctx, charge)
	}
	e.plugins.EmitSubscriptionCreated(ctx, sub, price)

	return sub, nil
}

// CancelSubscription deactivates a subscription owned by caller. Cancelling
// an inactive subscription succeeds without effect.
func (e *Engine) CancelSubscription(ctx context.Context, subID id.SubscriptionID, caller identity.Identity) (*subscription.Subscription, error) {
	if err := validateSigner(caller); err != nil {
		return nil, err
	}

	var (
		sub     *subscription.Subscription
		changed bool
		refund  *payment.Transfer
	)
	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		cur, err := tx.GetSubscription(ctx, subID)
		if err != nil {
			return err
		}
		if !cur.Subscriber.Equal(caller) {
			return ErrUnauthorized
		}
		sub = cur
		if !cur.Active {
			return nil
		}

		if err := tx.SetSubscriptionActive(ctx, subID, false); err != nil {
			return err
		}
		sub.Active = false
		changed = true

		if amount := e.refundFor(cur); amount.IsPositive() {
			t := payment.Transfer{From: e.treasury, To: cur.Subscriber, Amount: amount}
			if err := e.gatewayFor(tx).Transfer(ctx, t.From, t.To, t.Amount); err != nil {
				return fmt.Errorf("refund: %w", err)
			}
			refund = &t
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}

	if !changed {
		e.logger.Debug("subscription already cancelled", "subscription_id", subID.String())
		return sub, nil
	}

	e.logger.Info("Subscription cancelled",
		"subscription_id", sub.ID.String(),
		"subscriber", sub.Subscriber.String(),
	)
	e.plugins.EmitSubscriptionCanceled(ctx, sub)
	if refund != nil {
		e.logger.Info("refund issued",
			"subscription_id", sub.ID.String(),
			"amount", int64(refund.Amount),
		)
		e.plugins.EmitRefundIssued(ctx, sub, *refund)
	}

	return sub, nil
}

// GetSubscription returns the subscription with the given handle.
func (e *Engine) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, subID)
}

// CheckSubscription returns the subscription if it is active and unexpired.
// It never mutates state.
func (e *Engine) CheckSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if !sub.Active {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionCanceled, subID)
	}
	if sub.Expired(e.now()) {
		return nil, fmt.Errorf("%w: %s ended at %d", ErrSubscriptionExpired, subID, sub.EndTime)
	}
	return sub, nil
}

// refundFor returns what cancelling sub now pays back under the policy. The
// refund is a share of the price sub was charged, so later pricing changes
// never move it.
func (e *Engine) refundFor(sub *subscription.Subscription) types.Lamports {
	if e.refund != subscription.RefundProrated || !sub.Price.IsPositive() {
		return 0
	}
	total := sub.EndTime - sub.StartTime
	remaining := sub.Remaining(e.now())
	if total <= 0 || remaining <= 0 {
		return 0
	}
	return sub.Price.MulDiv(remaining, total)
}

func (e *Engine) gatewayFor(tx store.Store) payment.Gateway {
	if e.gateway != nil {
		return e.gateway
	}
	return payment.New(tx)
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// Balance returns the native balance held by who.
func (e *Engine) Balance(ctx context.Context, who identity.Identity) (types.Lamports, error) {
	return e.store.Balance(ctx, who)
}

// Airdrop mints amount into who's balance. It stands in for the network
// faucet on development stores.
func (e *Engine) Airdrop(ctx context.Context, who identity.Identity, amount types.Lamports) error {
	if err := validateSigner(who); err != nil {
		return err
	}
	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.Credit(ctx, who, amount)
	})
	if err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	e.logger.Info("airdrop credited",
		"recipient", who.String(),
		"amount", int64(amount),
	)
	return nil
}
