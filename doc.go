// Package narrative records narrative-shift assessments and sells
// time-bounded subscriptions paid in a network's native currency.
//
// narrative is a library, not a service. An Engine sits on a store.Store and
// runs every operation as one atomic unit: either every slot it touches is
// written, or none is.
//
//   - Records: CreateRecord stores an immutable assessment (a 0-100 score, a
//     platform and the alternative it is losing ground to) signed by its
//     author. GetRecord reads it back by handle.
//   - Subscriptions: Subscribe charges the tier price and opens a window of
//     whole days; CancelSubscription lets the owner deactivate it.
//     CheckSubscription reports whether a window is still usable.
//   - Payments: the payment package moves lamports between identities
//     through the store's transfer primitive.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/narrative"
//	    "github.com/xraph/narrative/store/memory"
//	)
//
//	s := memory.New()
//	e := narrative.New(s, treasury)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
//	rec, err := e.CreateRecord(ctx, narrative.RecordInput{
//	    Score:       75,
//	    Platform:    "Twitter",
//	    Alternative: "Farcaster",
//	    Timestamp:   time.Now().Unix(),
//	}, author)
//
//	sub, err := e.Subscribe(ctx, subscriber, 30) // 0.1 SOL
//
// # Pricing
//
// Durations up to 30 days cost 0.1 SOL (100,000,000 lamports); longer ones
// cost 0.3 SOL. WithPricing changes the tiers. Cancellation refunds nothing
// unless WithRefundPolicy(subscription.RefundProrated) is set.
//
// # Stores
//
// store/memory keeps state in process (Open adds a JSON snapshot file).
// store/sqlite, store/postgres and store/mongo persist through grove.
//
// # TypeID
//
// Handles are TypeIDs:
//
//	nrec_01h2xcejqtf2nbrexx3vqjhp41  // Record ID
//	sub_01h2xcejqtf2nbrexx3vqjhp41   // Subscription ID
package narrative
