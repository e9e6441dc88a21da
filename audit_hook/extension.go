// Package audithook bridges narrative events to an audit trail backend.
//
// It defines a local Recorder interface; callers inject a RecorderFunc
// adapter that forwards to their audit sink at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/plugin"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnRecordCreated        = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated  = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnPaymentTransferred   = (*Extension)(nil)
	_ plugin.OnPaymentFailed        = (*Extension)(nil)
	_ plugin.OnRefundIssued         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges narrative events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Record hooks
// ──────────────────────────────────────────────────

// OnRecordCreated implements plugin.OnRecordCreated.
func (e *Extension) OnRecordCreated(ctx context.Context, r *record.Record) error {
	return e.record(ctx, ActionRecordCreated, SeverityInfo, OutcomeSuccess,
		ResourceRecord, r.ID.String(), CategoryNarrative, nil,
		"authority", r.Authority.String(),
		"platform", r.Platform,
		"alternative", r.Alternative,
		"score", r.Score,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, price types.Lamports) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"subscriber", sub.Subscriber.String(),
		"duration_days", sub.DurationDays(),
		"end_time", sub.EndTime,
		"price", int64(price),
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"subscriber", sub.Subscriber.String(),
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentTransferred implements plugin.OnPaymentTransferred.
func (e *Extension) OnPaymentTransferred(ctx context.Context, t payment.Transfer) error {
	return e.record(ctx, ActionPaymentTransferred, SeverityInfo, OutcomeSuccess,
		ResourceAccount, t.From.String(), CategoryPayment, nil,
		"to", t.To.String(),
		"amount", int64(t.Amount),
	)
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (e *Extension) OnPaymentFailed(ctx context.Context, t payment.Transfer, err error) error {
	return e.record(ctx, ActionPaymentFailed, SeverityWarning, OutcomeFailure,
		ResourceAccount, t.From.String(), CategoryPayment, err,
		"to", t.To.String(),
		"amount", int64(t.Amount),
	)
}

// OnRefundIssued implements plugin.OnRefundIssued.
func (e *Extension) OnRefundIssued(ctx context.Context, sub *subscription.Subscription, t payment.Transfer) error {
	return e.record(ctx, ActionRefundIssued, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategoryPayment, nil,
		"to", t.To.String(),
		"amount", int64(t.Amount),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
