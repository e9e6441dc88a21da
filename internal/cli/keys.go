// Keypair and account commands: keygen, address, airdrop, balance.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/narrative"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/types"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the narrative version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "narrative v%s\nmodule: %s\nprogram: %s\n",
				Version, modulePath, narrative.ProgramID)
			return nil
		},
	}
}

func newKeygenCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.keypairPath()
			if _, err := os.Stat(path); err == nil && !force {
				return usagef("keypair %s already exists (use --force to replace it)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			kp, err := identity.Generate()
			if err != nil {
				return err
			}
			if err := kp.Save(path); err != nil {
				return err
			}

			out := map[string]string{"address": kp.Identity().String(), "keypair": path}
			return a.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote keypair to %s\n", path)
				fmt.Fprintf(w, "Address: %s\n", kp.Identity())
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair")
	return cmd
}

func newAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the signer's address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := a.signer()
			if err != nil {
				return err
			}
			addr := kp.Identity().String()
			return a.emit(cmd, map[string]string{"address": addr}, func(w io.Writer) {
				fmt.Fprintln(w, addr)
			})
		},
	}
}

func newAirdropCmd(a *app) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "airdrop <sol>",
		Short: "Credit SOL to an account on the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := types.ParseSOL(args[0])
			if err != nil {
				return usageError{err}
			}
			who, err := a.targetOrSigner(to)
			if err != nil {
				return err
			}

			var balance types.Lamports
			err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
				if err := eng.Airdrop(cmd.Context(), who, amount); err != nil {
					return err
				}
				balance, err = eng.Balance(cmd.Context(), who)
				return err
			})
			if err != nil {
				return err
			}

			out := balanceOutput{Address: who.String(), Lamports: int64(balance), SOL: balance.FormatSOL()}
			return a.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "Airdropped %s SOL to %s\n", amount.FormatSOL(), who)
				fmt.Fprintf(w, "Balance: %s SOL\n", balance.FormatSOL())
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address (default: signer)")
	return cmd
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show an account balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr string
			if len(args) == 1 {
				addr = args[0]
			}
			who, err := a.targetOrSigner(addr)
			if err != nil {
				return err
			}

			var balance types.Lamports
			err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
				balance, err = eng.Balance(cmd.Context(), who)
				return err
			})
			if err != nil {
				return err
			}

			out := balanceOutput{Address: who.String(), Lamports: int64(balance), SOL: balance.FormatSOL()}
			return a.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s SOL\n", balance.FormatSOL())
			})
		},
	}
}

type balanceOutput struct {
	Address  string `json:"address"`
	Lamports int64  `json:"lamports"`
	SOL      string `json:"sol"`
}

// targetOrSigner parses addr, falling back to the signer's address.
func (a *app) targetOrSigner(addr string) (identity.Identity, error) {
	if addr != "" {
		who, err := identity.Parse(addr)
		if err != nil {
			return identity.Identity{}, usageError{err}
		}
		return who, nil
	}
	kp, err := a.signer()
	if err != nil {
		return identity.Identity{}, err
	}
	return kp.Identity(), nil
}
