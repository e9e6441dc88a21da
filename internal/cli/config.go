// Config loading for the narrative CLI.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataFile     = "data_file"
	cfgKeyKeypair      = "keypair"
	cfgKeyTreasury     = "treasury"
	cfgKeyRefundPolicy = "refund_policy"
	cfgKeyPriceShort   = "pricing.short"
	cfgKeyPriceLong    = "pricing.long"
	cfgKeyBoundaryDays = "pricing.boundary_days"
	cfgKeyAuditLog     = "audit_log"

	defaultDataFile        = "state.json"
	defaultKeypairFile     = "id.json"
	defaultTreasuryKeypair = "treasury.json"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Narrative CLI configuration

# Snapshot of records, subscriptions and balances (relative to this directory)
data_file: state.json

# Signer keypair: a JSON array of the 64 ed25519 secret key bytes
keypair: id.json

# Address collecting subscription payments. When empty, a treasury keypair
# is generated as treasury.json on first use.
# treasury:

# What cancellation pays back: none or prorated
refund_policy: none

# Append audit events as JSON lines to this file (disabled when empty)
# audit_log: audit.jsonl

# Subscription tiers in lamports
pricing:
  short: 100000000
  long: 300000000
  boundary_days: 30
`

// loadConfig reads config.yaml from configDir. It creates the directory and
// a default config.yaml on first run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	defaults := subscription.DefaultPricing()

	v := viper.New()
	v.SetDefault(cfgKeyDataFile, defaultDataFile)
	v.SetDefault(cfgKeyKeypair, defaultKeypairFile)
	v.SetDefault(cfgKeyTreasury, "")
	v.SetDefault(cfgKeyAuditLog, "")
	v.SetDefault(cfgKeyRefundPolicy, string(subscription.RefundNone))
	v.SetDefault(cfgKeyPriceShort, int64(defaults.Short))
	v.SetDefault(cfgKeyPriceLong, int64(defaults.Long))
	v.SetDefault(cfgKeyBoundaryDays, defaults.BoundaryDays)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.Set("config_dir", configDir)
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}

// configPath resolves a file setting relative to the config directory.
func (a *app) configPath(key string) string {
	p := a.cfg.GetString(key)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cfg.GetString("config_dir"), p)
}

func (a *app) pricing() (subscription.Pricing, error) {
	p := subscription.Pricing{
		Short:        types.Lamports(a.cfg.GetInt64(cfgKeyPriceShort)),
		Long:         types.Lamports(a.cfg.GetInt64(cfgKeyPriceLong)),
		BoundaryDays: a.cfg.GetUint16(cfgKeyBoundaryDays),
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

func (a *app) refundPolicy() (subscription.RefundPolicy, error) {
	p := subscription.RefundPolicy(a.cfg.GetString(cfgKeyRefundPolicy))
	if !p.Valid() {
		return p, fmt.Errorf("config: unknown refund_policy %q", p)
	}
	return p, nil
}
