package narrative_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store/memory"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

const epoch int64 = 1_700_000_000

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine   *narrative.Engine
	store    *memory.Store
	clock    *clock
	logs     *bytes.Buffer
	events   *eventLog
	treasury identity.Identity
	alice    identity.Identity
	bob      identity.Identity
}

func ident(b byte) identity.Identity {
	var i identity.Identity
	i[0] = b
	i[31] = b
	return i
}

func newFixture(t *testing.T, opts ...narrative.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		clock:    &clock{now: time.Unix(epoch, 0)},
		logs:     &bytes.Buffer{},
		events:   &eventLog{},
		treasury: ident(9),
		alice:    ident(1),
		bob:      ident(2),
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []narrative.Option{
		narrative.WithLogger(logger),
		narrative.WithClock(f.clock.Now),
		narrative.WithPlugin(f.events),
	}
	f.engine = narrative.New(f.store, f.treasury, append(base, opts...)...)
	require.NoError(t, f.engine.Start(context.Background()))
	t.Cleanup(func() { _ = f.engine.Stop() })
	return f
}

func (f *fixture) fund(t *testing.T, who identity.Identity, amount types.Lamports) {
	t.Helper()
	require.NoError(t, f.engine.Airdrop(context.Background(), who, amount))
}

func (f *fixture) balance(t *testing.T, who identity.Identity) types.Lamports {
	t.Helper()
	bal, err := f.engine.Balance(context.Background(), who)
	require.NoError(t, err)
	return bal
}

// eventLog is a plugin that remembers every event it sees.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) Name() string { return "event-log" }

func (l *eventLog) add(e string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) OnRecordCreated(_ context.Context, _ *record.Record) error {
	return l.add("record.created")
}

func (l *eventLog) OnSubscriptionCreated(_ context.Context, _ *subscription.Subscription, _ types.Lamports) error {
	return l.add("subscription.created")
}

func (l *eventLog) OnSubscriptionCanceled(_ context.Context, _ *subscription.Subscription) error {
	return l.add("subscription.canceled")
}

func (l *eventLog) OnPaymentTransferred(_ context.Context, _ payment.Transfer) error {
	return l.add("payment.transferred")
}

func (l *eventLog) OnPaymentFailed(_ context.Context, _ payment.Transfer, _ error) error {
	return l.add("payment.failed")
}

func (l *eventLog) OnRefundIssued(_ context.Context, _ *subscription.Subscription, _ payment.Transfer) error {
	return l.add("refund.issued")
}

// ──────────────────────────────────────────────────
// Records
// ──────────────────────────────────────────────────

func TestCreateRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.engine.CreateRecord(ctx, record.Input{
		Score:       75,
		Platform:    "Twitter",
		Alternative: "Farcaster",
		Timestamp:   1_699_999_999,
	}, f.alice)
	require.NoError(t, err)

	assert.Equal(t, id.PrefixRecord, rec.ID.Prefix())
	assert.Equal(t, uint8(75), rec.Score)
	assert.Equal(t, f.alice, rec.Authority)

	got, err := f.engine.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, *rec, *got)

	assert.Contains(t, f.logs.String(), "Narrative stored: Twitter -> Farcaster (score: 75)")
	assert.Equal(t, []string{"record.created"}, f.events.list())
}

func TestCreateRecordValidation(t *testing.T) {
	long := strings.Repeat("x", record.MaxTextLen+1)
	exact := strings.Repeat("x", record.MaxTextLen)

	tests := []struct {
		name    string
		in      record.Input
		author  identity.Identity
		wantErr error
	}{
		{"max score", record.Input{Score: 100}, ident(1), nil},
		{"zero score", record.Input{Score: 0}, ident(1), nil},
		{"score over max", record.Input{Score: 101}, ident(1), narrative.ErrInvalidScore},
		{"score 255", record.Input{Score: 255}, ident(1), narrative.ErrInvalidScore},
		{"platform at bound", record.Input{Platform: exact}, ident(1), nil},
		{"platform too long", record.Input{Platform: long}, ident(1), narrative.ErrPlatformTooLong},
		{"alternative at bound", record.Input{Alternative: exact}, ident(1), nil},
		{"alternative too long", record.Input{Alternative: long}, ident(1), narrative.ErrAlternativeTooLong},
		{"empty texts", record.Input{}, ident(1), nil},
		{"missing signer", record.Input{Score: 1}, identity.Zero, narrative.ErrInvalidSigner},
		// multi-byte runes count as bytes
		{"platform bytes not runes", record.Input{Platform: strings.Repeat("é", 11)}, ident(1), narrative.ErrPlatformTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec, err := f.engine.CreateRecord(context.Background(), tt.in, tt.author)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotNil(t, rec)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, rec)

			records, _, _ := f.store.Len()
			assert.Zero(t, records)
			assert.Empty(t, f.events.list())
		})
	}
}

func TestValidationErrorsCarryField(t *testing.T) {
	err := narrative.ValidateRecordInput(record.Input{Platform: strings.Repeat("p", 21)})

	var ve narrative.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "platform", ve.Field)
	assert.True(t, narrative.IsValidationError(err))
	assert.Equal(t, narrative.CodePlatformTooLong, narrative.Code(err))
}

func TestGetRecordNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.GetRecord(context.Background(), id.NewRecordID())
	assert.ErrorIs(t, err, narrative.ErrRecordNotFound)
	assert.True(t, narrative.IsNotFound(err))
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func TestSubscribeThirtyDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	assert.Equal(t, epoch, sub.StartTime)
	assert.Equal(t, epoch+2_592_000, sub.EndTime)
	assert.True(t, sub.Active)
	assert.Equal(t, f.alice, sub.Subscriber)
	assert.Equal(t, types.Lamports(100_000_000), sub.Price)

	assert.Equal(t, types.Lamports(100_000_000), f.balance(t, f.treasury))
	assert.Equal(t, types.Lamports(900_000_000), f.balance(t, f.alice))

	stored, err := f.engine.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, *sub, *stored)

	assert.Contains(t, f.logs.String(), "Subscription created for 30 days")
	assert.Equal(t, []string{"payment.transferred", "subscription.created"}, f.events.list())
}

func TestSubscribePricingTiers(t *testing.T) {
	tests := []struct {
		days  uint16
		price types.Lamports
	}{
		{1, 100_000_000},
		{30, 100_000_000},
		{31, 300_000_000},
		{65535, 300_000_000},
	}

	for _, tt := range tests {
		f := newFixture(t)
		f.fund(t, f.alice, types.SOL(1))

		sub, err := f.engine.Subscribe(context.Background(), f.alice, tt.days)
		require.NoError(t, err, "days=%d", tt.days)

		assert.Equal(t, int64(tt.days)*subscription.SecondsPerDay, sub.EndTime-sub.StartTime)
		assert.Equal(t, int64(tt.days), sub.DurationDays())
		assert.Equal(t, tt.price, f.balance(t, f.treasury), "days=%d", tt.days)
	}
}

func TestSubscribeCustomPricing(t *testing.T) {
	f := newFixture(t, narrative.WithPricing(subscription.Pricing{Short: 5, Long: 15, BoundaryDays: 7}))
	f.fund(t, f.alice, 100)

	_, err := f.engine.Subscribe(context.Background(), f.alice, 8)
	require.NoError(t, err)
	assert.Equal(t, types.Lamports(15), f.balance(t, f.treasury))
}

func TestSubscribeFreeTier(t *testing.T) {
	f := newFixture(t, narrative.WithPricing(subscription.Pricing{Short: 0, Long: 15, BoundaryDays: 7}))
	ctx := context.Background()

	sub, err := f.engine.Subscribe(ctx, f.alice, 7)
	require.NoError(t, err)
	assert.True(t, sub.Active)
	assert.True(t, sub.Price.IsZero())
	assert.True(t, f.balance(t, f.treasury).IsZero())
	assert.Equal(t, []string{"subscription.created"}, f.events.list())

	// The paid tier still charges.
	_, err = f.engine.Subscribe(ctx, f.alice, 8)
	require.ErrorIs(t, err, narrative.ErrInsufficientFunds)
}

func TestSubscribeInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, 99_999_999)

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.ErrorIs(t, err, narrative.ErrInsufficientFunds)
	assert.Nil(t, sub)
	assert.True(t, narrative.IsPaymentError(err))

	_, subs, _ := f.store.Len()
	assert.Zero(t, subs)
	assert.Equal(t, types.Lamports(99_999_999), f.balance(t, f.alice))
	assert.Zero(t, f.balance(t, f.treasury))
	assert.Equal(t, []string{"payment.failed"}, f.events.list())
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	_, err := f.engine.Subscribe(ctx, f.alice, 0)
	assert.ErrorIs(t, err, narrative.ErrInvalidDuration)

	_, err = f.engine.Subscribe(ctx, identity.Zero, 30)
	assert.ErrorIs(t, err, narrative.ErrInvalidSigner)

	assert.Equal(t, types.SOL(1), f.balance(t, f.alice))
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	canceled, err := f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)
	assert.False(t, canceled.Active)

	stored, err := f.engine.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Equal(t, sub.Subscriber, stored.Subscriber)
	assert.Equal(t, sub.StartTime, stored.StartTime)
	assert.Equal(t, sub.EndTime, stored.EndTime)

	// No refund by default.
	assert.Equal(t, types.Lamports(100_000_000), f.balance(t, f.treasury))
	assert.Contains(t, f.logs.String(), "Subscription cancelled")
}

func TestCancelSubscriptionByNonOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	_, err = f.engine.CancelSubscription(ctx, sub.ID, f.bob)
	require.ErrorIs(t, err, narrative.ErrUnauthorized)
	assert.True(t, narrative.IsAuthorizationError(err))

	stored, err := f.engine.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestCancelSubscriptionTwiceIsNoop(t *testing.T) {
	f := newFixture(t, narrative.WithRefundPolicy(subscription.RefundProrated))
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	_, err = f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)
	after := f.balance(t, f.alice)
	events := len(f.events.list())

	again, err := f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)
	assert.False(t, again.Active)
	assert.Equal(t, after, f.balance(t, f.alice))
	assert.Len(t, f.events.list(), events)
}

func TestCancelUnknownSubscription(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CancelSubscription(context.Background(), id.NewSubscriptionID(), f.alice)
	assert.ErrorIs(t, err, narrative.ErrSubscriptionNotFound)
}

func TestCancelExpiredSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 1)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	canceled, err := f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)
	assert.False(t, canceled.Active)
}

func TestCancelWithProratedRefund(t *testing.T) {
	f := newFixture(t, narrative.WithRefundPolicy(subscription.RefundProrated))
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	f.clock.Advance(15 * 24 * time.Hour)
	_, err = f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)

	assert.Equal(t, types.Lamports(50_000_000), f.balance(t, f.treasury))
	assert.Equal(t, types.Lamports(950_000_000), f.balance(t, f.alice))
	assert.Equal(t,
		[]string{"payment.transferred", "subscription.created", "subscription.canceled", "refund.issued"},
		f.events.list(),
	)
}

func TestProratedRefundUsesPricePaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))
	f.fund(t, f.treasury, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	// Reopen with tripled prices and refunds enabled.
	repriced := narrative.New(f.store, f.treasury,
		narrative.WithClock(f.clock.Now),
		narrative.WithPricing(subscription.Pricing{Short: 300_000_000, Long: 900_000_000, BoundaryDays: 30}),
		narrative.WithRefundPolicy(subscription.RefundProrated),
	)
	require.NoError(t, repriced.Start(ctx))

	f.clock.Advance(15 * 24 * time.Hour)
	_, err = repriced.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)

	assert.Equal(t, types.Lamports(950_000_000), f.balance(t, f.alice))
	assert.Equal(t, types.SOL(1)+50_000_000, f.balance(t, f.treasury))
}

func TestCancelFreeSubscriptionRefundsNothing(t *testing.T) {
	f := newFixture(t,
		narrative.WithPricing(subscription.Pricing{Short: 0, Long: 0, BoundaryDays: 30}),
		narrative.WithRefundPolicy(subscription.RefundProrated),
	)
	ctx := context.Background()

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)
	_, err = f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.alice).IsZero())
	assert.NotContains(t, f.events.list(), "refund.issued")
}

func TestCancelRefundFailureKeepsSubscriptionActive(t *testing.T) {
	f := newFixture(t, narrative.WithRefundPolicy(subscription.RefundProrated))
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 30)
	require.NoError(t, err)

	// Drain the treasury so the refund cannot be paid.
	require.NoError(t, f.store.Transfer(ctx, f.treasury, f.bob, 100_000_000))

	_, err = f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.ErrorIs(t, err, narrative.ErrInsufficientFunds)

	stored, err := f.engine.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestCheckSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.alice, types.SOL(1))

	sub, err := f.engine.Subscribe(ctx, f.alice, 1)
	require.NoError(t, err)

	got, err := f.engine.CheckSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	f.clock.Advance(24 * time.Hour)
	_, err = f.engine.CheckSubscription(ctx, sub.ID)
	require.ErrorIs(t, err, narrative.ErrSubscriptionExpired)
	assert.Equal(t, narrative.CodeSubscriptionExpired, narrative.Code(err))

	// Checking does not touch state.
	stored, err := f.engine.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	_, err = f.engine.CancelSubscription(ctx, sub.ID, f.alice)
	require.NoError(t, err)
	_, err = f.engine.CheckSubscription(ctx, sub.ID)
	assert.ErrorIs(t, err, narrative.ErrSubscriptionCanceled)
}

func TestCustomGatewayJoinsUnit(t *testing.T) {
	var calls int
	var f *fixture
	gw := payment.GatewayFunc(func(ctx context.Context, from, to identity.Identity, amount types.Lamports) error {
		calls++
		return f.store.Transfer(ctx, from, to, amount)
	})
	f = newFixture(t, narrative.WithGateway(gw))
	f.fund(t, f.alice, types.SOL(1))

	_, err := f.engine.Subscribe(context.Background(), f.alice, 31)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, types.Lamports(300_000_000), f.balance(t, f.treasury))
}

func TestAirdropRejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Airdrop(context.Background(), f.alice, 0)
	assert.ErrorIs(t, err, narrative.ErrInvalidAmount)
}

func TestAirdropRejectsOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	top := types.Lamports(1<<63 - 1)
	f.fund(t, f.alice, top)

	err := f.engine.Airdrop(ctx, f.alice, 1)
	require.ErrorIs(t, err, narrative.ErrInvalidAmount)
	assert.Equal(t, top, f.balance(t, f.alice))

	// A transfer into a full account is refused the same way.
	f.fund(t, f.bob, 10)
	err = f.engine.Store().Transfer(ctx, f.bob, f.alice, 5)
	require.ErrorIs(t, err, narrative.ErrInvalidAmount)
	assert.Equal(t, types.Lamports(10), f.balance(t, f.bob))
}

func TestConcurrentSubscribersNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Enough for exactly three short subscriptions.
	f.fund(t, f.alice, 300_000_000)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Subscribe(ctx, f.alice, 7)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, refused int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, narrative.ErrInsufficientFunds):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, refused)
	assert.Zero(t, f.balance(t, f.alice))
	assert.Equal(t, types.Lamports(300_000_000), f.balance(t, f.treasury))
}
