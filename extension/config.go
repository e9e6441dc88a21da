package extension

import (
	"github.com/xraph/narrative/subscription"
)

// Config holds the narrative extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.narrative" or "narrative" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Treasury is the base58 identity subscription payments are collected into.
	Treasury string `json:"treasury" mapstructure:"treasury" yaml:"treasury"`

	// RefundPolicy is "none" (default) or "prorated".
	RefundPolicy string `json:"refund_policy" mapstructure:"refund_policy" yaml:"refund_policy"`

	// Pricing overrides the subscription tiers. Zero fields take defaults.
	Pricing subscription.Pricing `json:"pricing" mapstructure:"pricing" yaml:"pricing"`

	// GroveDriver selects the store built over a grove.DB supplied with
	// WithGroveDB: "postgres", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RefundPolicy: string(subscription.RefundNone),
		Pricing:      subscription.DefaultPricing(),
		GroveDriver:  "postgres",
	}
}
