package audithook_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/narrative/audit_hook"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
)

type sink struct{ events []*audithook.AuditEvent }

func (s *sink) recorder() audithook.RecorderFunc {
	return func(_ context.Context, e *audithook.AuditEvent) error {
		s.events = append(s.events, e)
		return nil
	}
}

func TestRecordCreatedEvent(t *testing.T) {
	var s sink
	ext := audithook.New(s.recorder())

	r := &record.Record{ID: id.NewRecordID(), Score: 75, Platform: "Twitter", Alternative: "Farcaster"}
	require.NoError(t, ext.OnRecordCreated(context.Background(), r))

	require.Len(t, s.events, 1)
	e := s.events[0]
	assert.Equal(t, audithook.ActionRecordCreated, e.Action)
	assert.Equal(t, audithook.ResourceRecord, e.Resource)
	assert.Equal(t, r.ID.String(), e.ResourceID)
	assert.Equal(t, "Farcaster", e.Metadata["alternative"])
	assert.Equal(t, uint8(75), e.Metadata["score"])
}

func TestSubscriptionCreatedCarriesPrice(t *testing.T) {
	var s sink
	ext := audithook.New(s.recorder())

	sub := &subscription.Subscription{
		ID:        id.NewSubscriptionID(),
		StartTime: 0,
		EndTime:   30 * subscription.SecondsPerDay,
		Active:    true,
	}
	require.NoError(t, ext.OnSubscriptionCreated(context.Background(), sub, 100_000_000))

	require.Len(t, s.events, 1)
	assert.Equal(t, int64(100_000_000), s.events[0].Metadata["price"])
	assert.Equal(t, int64(30), s.events[0].Metadata["duration_days"])
}

func TestPaymentFailedIsFailureOutcome(t *testing.T) {
	var s sink
	ext := audithook.New(s.recorder())

	require.NoError(t, ext.OnPaymentFailed(context.Background(), payment.Transfer{Amount: 5}, errors.New("insufficient")))

	require.Len(t, s.events, 1)
	assert.Equal(t, audithook.OutcomeFailure, s.events[0].Outcome)
	assert.Equal(t, "insufficient", s.events[0].Reason)
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	sub := &subscription.Subscription{ID: id.NewSubscriptionID()}

	var only sink
	ext := audithook.New(only.recorder(), audithook.WithEnabledActions(audithook.ActionRefundIssued))
	require.NoError(t, ext.OnSubscriptionCanceled(ctx, sub))
	require.NoError(t, ext.OnRefundIssued(ctx, sub, payment.Transfer{Amount: 1}))
	require.Len(t, only.events, 1)
	assert.Equal(t, audithook.ActionRefundIssued, only.events[0].Action)

	var most sink
	ext = audithook.New(most.recorder(), audithook.WithDisabledActions(audithook.ActionSubscriptionCanceled))
	require.NoError(t, ext.OnSubscriptionCanceled(ctx, sub))
	require.NoError(t, ext.OnPaymentTransferred(ctx, payment.Transfer{Amount: 1}))
	require.Len(t, most.events, 1)
	assert.Equal(t, audithook.ActionPaymentTransferred, most.events[0].Action)
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("sink down")
	}))
	assert.NoError(t, ext.OnSubscriptionCanceled(context.Background(), &subscription.Subscription{}))
}
