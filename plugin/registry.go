package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/narrative/payment"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches events to them.
// Hook lists are cached per interface at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onRecordCreated        []OnRecordCreated
	onSubscriptionCreated  []OnSubscriptionCreated
	onSubscriptionCanceled []OnSubscriptionCanceled
	onPaymentTransferred   []OnPaymentTransferred
	onPaymentFailed        []OnPaymentFailed
	onRefundIssued         []OnRefundIssued
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnRecordCreated); ok {
		r.onRecordCreated = append(r.onRecordCreated, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnPaymentTransferred); ok {
		r.onPaymentTransferred = append(r.onPaymentTransferred, v)
	}
	if v, ok := p.(OnPaymentFailed); ok {
		r.onPaymentFailed = append(r.onPaymentFailed, v)
	}
	if v, ok := p.(OnRefundIssued); ok {
		r.onRefundIssued = append(r.onRefundIssued, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", Interfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnRecordCreated)(nil)).Elem(), "OnRecordCreated"},
	{reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated"},
	{reflect.TypeOf((*OnSubscriptionCanceled)(nil)).Elem(), "OnSubscriptionCanceled"},
	{reflect.TypeOf((*OnPaymentTransferred)(nil)).Elem(), "OnPaymentTransferred"},
	{reflect.TypeOf((*OnPaymentFailed)(nil)).Elem(), "OnPaymentFailed"},
	{reflect.TypeOf((*OnRefundIssued)(nil)).Elem(), "OnRefundIssued"},
}

// Interfaces lists the hook interfaces p implements.
func Interfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every hook in hooks, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, event string, hooks []T, call func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+event+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", hooks, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", hooks, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitRecordCreated emits a record created event.
func (r *Registry) EmitRecordCreated(ctx context.Context, rec *record.Record) {
	r.mu.RLock()
	hooks := r.onRecordCreated
	r.mu.RUnlock()

	emit(ctx, r, "OnRecordCreated", hooks, func(p OnRecordCreated) error {
		return p.OnRecordCreated(ctx, rec)
	})
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, price types.Lamports) {
	r.mu.RLock()
	hooks := r.onSubscriptionCreated
	r.mu.RUnlock()

	emit(ctx, r, "OnSubscriptionCreated", hooks, func(p OnSubscriptionCreated) error {
		return p.OnSubscriptionCreated(ctx, sub, price)
	})
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	hooks := r.onSubscriptionCanceled
	r.mu.RUnlock()

	emit(ctx, r, "OnSubscriptionCanceled", hooks, func(p OnSubscriptionCanceled) error {
		return p.OnSubscriptionCanceled(ctx, sub)
	})
}

// EmitPaymentTransferred emits a payment transferred event.
func (r *Registry) EmitPaymentTransferred(ctx context.Context, t payment.Transfer) {
	r.mu.RLock()
	hooks := r.onPaymentTransferred
	r.mu.RUnlock()

	emit(ctx, r, "OnPaymentTransferred", hooks, func(p OnPaymentTransferred) error {
		return p.OnPaymentTransferred(ctx, t)
	})
}

// EmitPaymentFailed emits a payment failed event.
func (r *Registry) EmitPaymentFailed(ctx context.Context, t payment.Transfer, cause error) {
	r.mu.RLock()
	hooks := r.onPaymentFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnPaymentFailed", hooks, func(p OnPaymentFailed) error {
		return p.OnPaymentFailed(ctx, t, cause)
	})
}

// EmitRefundIssued emits a refund issued event.
func (r *Registry) EmitRefundIssued(ctx context.Context, sub *subscription.Subscription, t payment.Transfer) {
	r.mu.RLock()
	hooks := r.onRefundIssued
	r.mu.RUnlock()

	emit(ctx, r, "OnRefundIssued", hooks, func(p OnRefundIssued) error {
		return p.OnRefundIssued(ctx, sub, t)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// A slow plugin never holds up the operation that emitted the event.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
