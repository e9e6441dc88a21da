// Package plugin provides an extensible plugin system for narrative.
// Plugins can hook into record, subscription and payment events.
package plugin

import (
	"context"

	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Record hooks
// ──────────────────────────────────────────────────

// OnRecordCreated is called after a narrative record is committed.
type OnRecordCreated interface {
	Plugin
	OnRecordCreated(ctx context.Context, r *record.Record) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called after a paid subscription is committed.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, price types.Lamports) error
}

// OnSubscriptionCanceled is called after a subscription is deactivated.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentTransferred is called after a subscription payment is committed.
type OnPaymentTransferred interface {
	Plugin
	OnPaymentTransferred(ctx context.Context, t payment.Transfer) error
}

// OnPaymentFailed is called when a subscription payment is refused.
type OnPaymentFailed interface {
	Plugin
	OnPaymentFailed(ctx context.Context, t payment.Transfer, err error) error
}

// OnRefundIssued is called after a cancellation refund is committed.
type OnRefundIssued interface {
	Plugin
	OnRefundIssued(ctx context.Context, sub *subscription.Subscription, t payment.Transfer) error
}
