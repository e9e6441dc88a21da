// Package subscription defines time-bounded subscriptions paid in the
// network's native currency, and the two-tier pricing that applies to them.
package subscription

import (
	"errors"
	"time"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/types"
)

// SecondsPerDay converts a duration in days into the clock's unit.
const SecondsPerDay int64 = 86400

// Subscription is a persisted paid subscription. Only Active ever changes
// after creation.
type Subscription struct {
	ID         id.SubscriptionID `json:"id"`
	Subscriber identity.Identity `json:"subscriber"`
	StartTime  int64             `json:"start_time"`
	EndTime    int64             `json:"end_time"`
	Active     bool              `json:"active"`
	// Price is what the subscriber was charged. It sits beside the slot
	// rather than in it and bounds any refund.
	Price types.Lamports `json:"price"`
}

// DurationDays returns the number of whole days the subscription covers.
func (s *Subscription) DurationDays() int64 {
	return (s.EndTime - s.StartTime) / SecondsPerDay
}

// Expired reports whether now is at or past EndTime. Create and cancel never
// consult it.
func (s *Subscription) Expired(now time.Time) bool {
	return now.Unix() >= s.EndTime
}

// Remaining returns the unused seconds of the window at now, clamped to
// [0, EndTime-StartTime].
func (s *Subscription) Remaining(now time.Time) int64 {
	total := s.EndTime - s.StartTime
	left := s.EndTime - now.Unix()
	switch {
	case left < 0:
		return 0
	case left > total:
		return total
	default:
		return left
	}
}

// Window computes the end of a subscription of durationDays starting at start.
func Window(start int64, durationDays uint16) int64 {
	return start + int64(durationDays)*SecondsPerDay
}

// Pricing selects the price of a subscription by its duration.
type Pricing struct {
	// Short is charged when the duration is at most BoundaryDays.
	Short types.Lamports `json:"short" mapstructure:"short" yaml:"short"`
	// Long is charged when the duration exceeds BoundaryDays.
	Long types.Lamports `json:"long" mapstructure:"long" yaml:"long"`
	// BoundaryDays is the largest duration that still pays Short.
	BoundaryDays uint16 `json:"boundary_days" mapstructure:"boundary_days" yaml:"boundary_days"`
}

// DefaultPricing charges 0.1 SOL up to 30 days and 0.3 SOL beyond.
func DefaultPricing() Pricing {
	return Pricing{
		Short:        100_000_000,
		Long:         300_000_000,
		BoundaryDays: 30,
	}
}

// Price returns the tier price for durationDays.
func (p Pricing) Price(durationDays uint16) types.Lamports {
	if durationDays <= p.BoundaryDays {
		return p.Short
	}
	return p.Long
}

// Validate rejects negative tier prices. A tier priced at zero is free.
func (p Pricing) Validate() error {
	if p.Short.IsNegative() || p.Long.IsNegative() {
		return errors.New("subscription: tier prices must not be negative")
	}
	return nil
}

// RefundPolicy decides what cancellation pays back.
type RefundPolicy string

const (
	// RefundNone cancels by clearing the active flag only.
	RefundNone RefundPolicy = "none"
	// RefundProrated returns the unused share of the price paid from the
	// treasury to the subscriber.
	RefundProrated RefundPolicy = "prorated"
)

// Valid reports whether p is a known policy.
func (p RefundPolicy) Valid() bool {
	return p == RefundNone || p == RefundProrated
}
