package observability_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/narrative/observability"
	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
)

type metric struct {
	mu     sync.Mutex
	total  float64
	values []float64
}

func (m *metric) Inc()              { m.Add(1) }
func (m *metric) Add(v float64)     { m.mu.Lock(); m.total += v; m.mu.Unlock() }
func (m *metric) Observe(v float64) { m.mu.Lock(); m.values = append(m.values, v); m.mu.Unlock() }

type factory struct{ metrics map[string]*metric }

func newFactory() *factory { return &factory{metrics: map[string]*metric{}} }

func (f *factory) get(name string) *metric {
	if m, ok := f.metrics[name]; ok {
		return m
	}
	m := &metric{}
	f.metrics[name] = m
	return m
}

func (f *factory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *factory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestMetricsFollowEvents(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	require.NoError(t, m.OnRecordCreated(ctx, &record.Record{Score: 75}))
	sub := &subscription.Subscription{StartTime: 0, EndTime: 31 * subscription.SecondsPerDay}
	require.NoError(t, m.OnSubscriptionCreated(ctx, sub, 300_000_000))
	require.NoError(t, m.OnPaymentTransferred(ctx, payment.Transfer{Amount: 300_000_000}))
	require.NoError(t, m.OnPaymentFailed(ctx, payment.Transfer{}, errors.New("x")))
	require.NoError(t, m.OnSubscriptionCanceled(ctx, sub))
	require.NoError(t, m.OnRefundIssued(ctx, sub, payment.Transfer{Amount: 10}))

	assert.Equal(t, 1.0, f.metrics["narrative.record.created"].total)
	assert.Equal(t, []float64{75}, f.metrics["narrative.record.score"].values)
	assert.Equal(t, []float64{31}, f.metrics["narrative.subscription.duration_days"].values)
	assert.Equal(t, 300_000_000.0, f.metrics["narrative.payment.lamports"].total)
	assert.Equal(t, 1.0, f.metrics["narrative.payment.failed"].total)
	assert.Equal(t, 1.0, f.metrics["narrative.subscription.canceled"].total)
	assert.Equal(t, 10.0, f.metrics["narrative.refund.lamports"].total)
}
