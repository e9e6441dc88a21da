package extension

import (
	"github.com/xraph/grove"

	narrative "github.com/xraph/narrative"
	audithook "github.com/xraph/narrative/audit_hook"
	"github.com/xraph/narrative/observability"
	"github.com/xraph/narrative/plugin"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/subscription"
)

// Option configures the narrative Forge extension.
type Option func(*Extension)

// WithStore sets the store for the narrative engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store over db, using the backend named by the
// grove_driver setting.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithEngineOption passes a narrative.Option through to the underlying engine.
func WithEngineOption(opt narrative.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a narrative plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, narrative.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithTreasury sets the base58 treasury identity.
func WithTreasury(address string) Option {
	return func(e *Extension) { e.config.Treasury = address }
}

// WithRefundPolicy sets the cancellation refund policy.
func WithRefundPolicy(p subscription.RefundPolicy) Option {
	return func(e *Extension) { e.config.RefundPolicy = string(p) }
}

// WithPricing sets the subscription tiers.
func WithPricing(p subscription.Pricing) Option {
	return func(e *Extension) { e.config.Pricing = p }
}

// WithGroveDriver selects the grove-backed store: "postgres", "sqlite" or "mongo".
func WithGroveDriver(driver string) Option {
	return func(e *Extension) { e.config.GroveDriver = driver }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMetrics registers the metrics plugin over factory.
func WithMetrics(factory observability.MetricFactory) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, narrative.WithPlugin(observability.NewMetricsExtension(factory)))
	}
}

// WithAuditRecorder registers the audit plugin, forwarding events to r.
func WithAuditRecorder(r audithook.Recorder, opts ...audithook.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, narrative.WithPlugin(audithook.New(r, opts...)))
	}
}
