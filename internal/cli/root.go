// Package cli implements the narrative command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/narrative"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the CLI release.
const Version = "0.1.0"

const modulePath = "github.com/xraph/narrative"

// app holds the global flag values and the state resolved from them.
type app struct {
	configDir string
	keypair   string
	jsonMode  bool
	verbose   bool

	cfg    *viper.Viper
	logger *slog.Logger
}

// NewRootCmd creates the top-level "narrative" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "narrative",
		Short: "Record narrative shifts and manage paid subscriptions",
		Long: "Narrative stores narrative-shift assessments and sells time-bounded\n" +
			"subscriptions paid in lamports into a treasury account.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: .narrative)")
	root.PersistentFlags().StringVar(&a.keypair, "keypair", "", "signer keypair file (overrides config)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		newVersionCmd(),
		newKeygenCmd(a),
		newAddressCmd(a),
		newAirdropCmd(a),
		newBalanceCmd(a),
		newRecordCmd(a),
		newSubscribeCmd(a),
		newCancelCmd(a),
		newShowCmd(a),
		newCheckCmd(a),
		newScanCmd(a),
	)

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

func (a *app) init(stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(a.resolveConfigDir())
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// resolveConfigDir returns the config directory from flag, env, or default.
func (a *app) resolveConfigDir() string {
	if a.configDir != "" {
		return a.configDir
	}
	if v := os.Getenv("NARRATIVE_CONFIG_DIR"); v != "" {
		return v
	}
	return ".narrative"
}

// exitCode separates caller mistakes from environment failures.
func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &usage),
		narrative.Code(err) != narrative.CodeUnknown:
		return exitUserError
	default:
		return exitSysError
	}
}

// usageError marks a malformed argument or flag.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}
