package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

func TestPricingTiers(t *testing.T) {
	p := subscription.DefaultPricing()
	tests := []struct {
		days uint16
		want types.Lamports
	}{
		{1, 100_000_000},
		{30, 100_000_000},
		{31, 300_000_000},
		{365, 300_000_000},
		{65535, 300_000_000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Price(tt.days), "days=%d", tt.days)
	}
	assert.Equal(t, 3*p.Short, p.Long)
}

func TestPricingValidate(t *testing.T) {
	assert.NoError(t, subscription.DefaultPricing().Validate())
	assert.NoError(t, subscription.Pricing{Short: 0, Long: 10, BoundaryDays: 30}.Validate())
	assert.Error(t, subscription.Pricing{Short: -1, Long: 10, BoundaryDays: 30}.Validate())
}

func TestWindow(t *testing.T) {
	const start = int64(1_700_000_000)
	assert.Equal(t, start+2_592_000, subscription.Window(start, 30))
	assert.Equal(t, start+86400, subscription.Window(start, 1))
	assert.Equal(t, start+65535*86400, subscription.Window(start, 65535))
}

func TestRemainingAndExpired(t *testing.T) {
	s := &subscription.Subscription{StartTime: 1000, EndTime: 1000 + 10*86400, Active: true}
	assert.Equal(t, int64(10), s.DurationDays())

	assert.Equal(t, int64(10*86400), s.Remaining(time.Unix(500, 0)))
	assert.Equal(t, int64(5*86400), s.Remaining(time.Unix(1000+5*86400, 0)))
	assert.Equal(t, int64(0), s.Remaining(time.Unix(1000+11*86400, 0)))

	assert.False(t, s.Expired(time.Unix(1000, 0)))
	assert.True(t, s.Expired(time.Unix(s.EndTime, 0)))
}

func TestLayout(t *testing.T) {
	assert.Equal(t, 49, subscription.Size)

	in := &subscription.Subscription{StartTime: 10, EndTime: 10 + 86400, Active: true}
	in.Subscriber[0] = 7
	buf, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, subscription.Size)

	var out subscription.Subscription
	require.NoError(t, out.UnmarshalBinary(buf))
	assert.Equal(t, in.Subscriber, out.Subscriber)
	assert.Equal(t, in.StartTime, out.StartTime)
	assert.Equal(t, in.EndTime, out.EndTime)
	assert.True(t, out.Active)

	buf[len(buf)-1] = 2
	assert.ErrorIs(t, out.UnmarshalBinary(buf), subscription.ErrLayout)
}

func TestRefundPolicyValid(t *testing.T) {
	assert.True(t, subscription.RefundNone.Valid())
	assert.True(t, subscription.RefundProrated.Valid())
	assert.False(t, subscription.RefundPolicy("full").Valid())
}
