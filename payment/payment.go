// Package payment moves native currency between identities on behalf of the
// subscription flow. It adds no policy of its own: the ledger's transfer
// primitive decides whether a transfer succeeds, and its error is returned
// unchanged.
package payment

import (
	"context"

	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/types"
)

// Ledger is the host ledger's native transfer primitive. store.Store
// satisfies it.
type Ledger interface {
	Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error
}

// Gateway performs a transfer. Implementations must pass ctx through to the
// ledger so the transfer joins any atomic unit ctx belongs to.
type Gateway interface {
	Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, from, to identity.Identity, amount types.Lamports) error

// Transfer implements Gateway.
func (f GatewayFunc) Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error {
	return f(ctx, from, to, amount)
}

// Transfer describes one movement of funds.
type Transfer struct {
	From   identity.Identity `json:"from"`
	To     identity.Identity `json:"to"`
	Amount types.Lamports    `json:"amount"`
}

// Passthrough is a Gateway that forwards to a Ledger.
type Passthrough struct {
	ledger Ledger
}

// compile-time interface check
var _ Gateway = (*Passthrough)(nil)

// New returns a Gateway over ledger.
func New(ledger Ledger) *Passthrough {
	return &Passthrough{ledger: ledger}
}

// Transfer moves amount from one identity to another.
func (p *Passthrough) Transfer(ctx context.Context, from, to identity.Identity, amount types.Lamports) error {
	return p.ledger.Transfer(ctx, from, to, amount)
}
