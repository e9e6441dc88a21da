// Engine and signer resolution for the narrative CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xraph/narrative"
	audithook "github.com/xraph/narrative/audit_hook"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/store/memory"
)

// withEngine opens the snapshot store, runs fn against a started engine and
// stops it afterwards.
func (a *app) withEngine(ctx context.Context, fn func(*narrative.Engine) error) error {
	pricing, err := a.pricing()
	if err != nil {
		return err
	}
	refund, err := a.refundPolicy()
	if err != nil {
		return err
	}
	treasury, err := a.treasury()
	if err != nil {
		return err
	}

	s, err := memory.Open(a.configPath(cfgKeyDataFile))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	opts := []narrative.Option{
		narrative.WithLogger(a.logger),
		narrative.WithPricing(pricing),
		narrative.WithRefundPolicy(refund),
	}
	if path := a.configPath(cfgKeyAuditLog); path != "" {
		audit, err := openAuditLog(path)
		if err != nil {
			_ = s.Close()
			return err
		}
		defer audit.Close()
		opts = append(opts, narrative.WithPlugin(audithook.New(audit, audithook.WithLogger(a.logger))))
	}

	eng := narrative.New(s, treasury, opts...)
	if err := eng.Start(ctx); err != nil {
		_ = s.Close()
		return fmt.Errorf("start engine: %w", err)
	}

	runErr := fn(eng)
	if err := eng.Stop(); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop engine: %w", err)
	}
	return runErr
}

// signer loads the keypair named by --keypair or the config.
func (a *app) signer() (*identity.Keypair, error) {
	path := a.keypairPath()
	kp, err := identity.LoadKeypair(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, usagef("no keypair at %s (run `narrative keygen`)", path)
	}
	return kp, err
}

func (a *app) keypairPath() string {
	if a.keypair != "" {
		return a.keypair
	}
	return a.configPath(cfgKeyKeypair)
}

// treasury returns the configured treasury address, generating a treasury
// keypair in the config directory when none is configured.
func (a *app) treasury() (identity.Identity, error) {
	if addr := a.cfg.GetString(cfgKeyTreasury); addr != "" {
		who, err := identity.Parse(addr)
		if err != nil {
			return identity.Identity{}, fmt.Errorf("config: treasury: %w", err)
		}
		return who, nil
	}

	path := filepath.Join(a.cfg.GetString("config_dir"), defaultTreasuryKeypair)
	kp, err := identity.LoadKeypair(path)
	if err == nil {
		return kp.Identity(), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return identity.Identity{}, err
	}

	kp, err = identity.Generate()
	if err != nil {
		return identity.Identity{}, err
	}
	if err := kp.Save(path); err != nil {
		return identity.Identity{}, err
	}
	a.logger.Info("generated treasury keypair", "path", path, "address", kp.Identity().String())
	return kp.Identity(), nil
}
