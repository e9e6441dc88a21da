// Package observability provides a metrics plugin for narrative that records
// event counts and payment volumes through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/plugin"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnRecordCreated        = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnPaymentTransferred   = (*MetricsExtension)(nil)
	_ plugin.OnPaymentFailed        = (*MetricsExtension)(nil)
	_ plugin.OnRefundIssued         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records narrative metrics. Register it as a plugin.
type MetricsExtension struct {
	// Record metrics
	RecordCreated Counter
	RecordScore   Histogram

	// Subscription metrics
	SubscriptionCreated  Counter
	SubscriptionCanceled Counter
	SubscriptionDays     Histogram

	// Payment metrics
	PaymentTransferred Counter
	PaymentFailed      Counter
	PaymentLamports    Counter
	RefundIssued       Counter
	RefundLamports     Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		RecordCreated: factory.Counter("narrative.record.created"),
		RecordScore:   factory.Histogram("narrative.record.score"),

		SubscriptionCreated:  factory.Counter("narrative.subscription.created"),
		SubscriptionCanceled: factory.Counter("narrative.subscription.canceled"),
		SubscriptionDays:     factory.Histogram("narrative.subscription.duration_days"),

		PaymentTransferred: factory.Counter("narrative.payment.transferred"),
		PaymentFailed:      factory.Counter("narrative.payment.failed"),
		PaymentLamports:    factory.Counter("narrative.payment.lamports"),
		RefundIssued:       factory.Counter("narrative.refund.issued"),
		RefundLamports:     factory.Counter("narrative.refund.lamports"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnRecordCreated implements plugin.OnRecordCreated.
func (m *MetricsExtension) OnRecordCreated(_ context.Context, r *record.Record) error {
	m.RecordCreated.Inc()
	m.RecordScore.Observe(float64(r.Score))
	return nil
}

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, sub *subscription.Subscription, _ types.Lamports) error {
	m.SubscriptionCreated.Inc()
	m.SubscriptionDays.Observe(float64(sub.DurationDays()))
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnPaymentTransferred implements plugin.OnPaymentTransferred.
func (m *MetricsExtension) OnPaymentTransferred(_ context.Context, t payment.Transfer) error {
	m.PaymentTransferred.Inc()
	m.PaymentLamports.Add(float64(t.Amount))
	return nil
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (m *MetricsExtension) OnPaymentFailed(_ context.Context, _ payment.Transfer, _ error) error {
	m.PaymentFailed.Inc()
	return nil
}

// OnRefundIssued implements plugin.OnRefundIssued.
func (m *MetricsExtension) OnRefundIssued(_ context.Context, _ *subscription.Subscription, t payment.Transfer) error {
	m.RefundIssued.Inc()
	m.RefundLamports.Add(float64(t.Amount))
	return nil
}
