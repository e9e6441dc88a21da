package narrative

import (
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// Re-export common types for convenience so users don't have to import the
// leaf packages.

// Lamports is re-exported from types package.
type Lamports = types.Lamports

// Identity is re-exported from identity package.
type Identity = identity.Identity

// Record is re-exported from record package.
type Record = record.Record

// RecordInput is re-exported from record package.
type RecordInput = record.Input

// Subscription is re-exported from subscription package.
type Subscription = subscription.Subscription

// Pricing is re-exported from subscription package.
type Pricing = subscription.Pricing

// Re-export constructors.
var (
	SOL            = types.SOL
	ParseSOL       = types.ParseSOL
	ParseIdentity  = identity.Parse
	DefaultPricing = subscription.DefaultPricing
)
