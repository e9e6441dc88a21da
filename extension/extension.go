// Package extension provides the Forge extension adapter for narrative.
//
// It implements the forge.Extension interface to integrate the narrative
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.narrative" or
// "narrative" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	narrative "github.com/xraph/narrative"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/store"
	"github.com/xraph/narrative/store/memory"
	mongostore "github.com/xraph/narrative/store/mongo"
	pgstore "github.com/xraph/narrative/store/postgres"
	sqlitestore "github.com/xraph/narrative/store/sqlite"
	"github.com/xraph/narrative/subscription"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "narrative"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Narrative-shift records and paid subscriptions"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts narrative as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *narrative.Engine
	store      store.Store
	groveDB    *grove.DB
	engineOpts []narrative.Option
}

// New creates a new narrative Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *narrative.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	treasury, err := identity.Parse(e.config.Treasury)
	if err != nil {
		return fmt.Errorf("narrative: treasury: %w", err)
	}

	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = narrative.New(e.store, treasury, e.buildEngineOpts()...)

	return vessel.Provide(fapp.Container(), func() (*narrative.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("narrative: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("narrative: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore picks the grove backend for the configured driver, or an
// in-memory store when no grove.DB was supplied.
func (e *Extension) buildStore() (store.Store, error) {
	if e.groveDB == nil {
		return memory.New(), nil
	}
	switch e.config.GroveDriver {
	case "postgres", "pg":
		return pgstore.New(e.groveDB), nil
	case "sqlite", "sqlite3":
		return sqlitestore.New(e.groveDB), nil
	case "mongo", "mongodb":
		return mongostore.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("narrative: unknown grove driver %q", e.config.GroveDriver)
	}
}

// buildEngineOpts constructs narrative.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []narrative.Option {
	opts := make([]narrative.Option, 0, len(e.engineOpts)+2)

	opts = append(opts,
		narrative.WithPricing(e.config.Pricing),
		narrative.WithRefundPolicy(subscription.RefundPolicy(e.config.RefundPolicy)),
	)

	// Pass-through options apply last so they win.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("narrative: configuration is required but not found in config files; " +
				"ensure 'extensions.narrative' or 'narrative' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	if !subscription.RefundPolicy(e.config.RefundPolicy).Valid() {
		return fmt.Errorf("narrative: unknown refund_policy %q", e.config.RefundPolicy)
	}
	if err := e.config.Pricing.Validate(); err != nil {
		return fmt.Errorf("narrative: pricing: %w", err)
	}

	e.Logger().Debug("narrative: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("treasury", e.config.Treasury),
		forge.F("refund_policy", e.config.RefundPolicy),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.narrative", "narrative"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("narrative: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("narrative: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.RefundPolicy == "" {
		cfg.RefundPolicy = defaults.RefundPolicy
	}
	if cfg.GroveDriver == "" {
		cfg.GroveDriver = defaults.GroveDriver
	}
	if cfg.Pricing.Short == 0 {
		cfg.Pricing.Short = defaults.Pricing.Short
	}
	if cfg.Pricing.Long == 0 {
		cfg.Pricing.Long = defaults.Pricing.Long
	}
	if cfg.Pricing.BoundaryDays == 0 {
		cfg.Pricing.BoundaryDays = defaults.Pricing.BoundaryDays
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if yamlConfig.Treasury == "" {
		yamlConfig.Treasury = programmaticConfig.Treasury
	}
	if yamlConfig.RefundPolicy == "" {
		yamlConfig.RefundPolicy = programmaticConfig.RefundPolicy
	}
	if yamlConfig.GroveDriver == "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}
	if yamlConfig.Pricing == (subscription.Pricing{}) {
		yamlConfig.Pricing = programmaticConfig.Pricing
	}
	return mergeWithDefaults(yamlConfig)
}
