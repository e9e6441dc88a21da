// Record and subscription commands: record, subscribe, cancel, show, check.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/narrative"
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		score     uint8
		platform  string
		alt       string
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Store a narrative-shift record signed by the keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := a.signer()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("timestamp") {
				timestamp = time.Now().Unix()
			}
			in := record.Input{
				Score:       score,
				Platform:    platform,
				Alternative: alt,
				Timestamp:   timestamp,
			}

			var rec *record.Record
			err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
				rec, err = eng.CreateRecord(cmd.Context(), in, kp.Identity())
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, rec, func(w io.Writer) { printRecord(w, rec) })
		},
	}
	cmd.Flags().Uint8Var(&score, "score", 0, "confidence score (0-100)")
	cmd.Flags().StringVar(&platform, "platform", "", "platform the narrative moves away from")
	cmd.Flags().StringVar(&alt, "alternative", "", "platform the narrative moves toward")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "observation time in unix seconds (default: now)")
	_ = cmd.MarkFlagRequired("score")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("alternative")
	return cmd
}

func newSubscribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <days>",
		Short: "Buy a subscription paid into the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return usagef("invalid duration %q: must be 1-65535 days", args[0])
			}
			kp, err := a.signer()
			if err != nil {
				return err
			}

			var sub *subscription.Subscription
			err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
				sub, err = eng.Subscribe(cmd.Context(), kp.Identity(), uint16(days))
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, sub, func(w io.Writer) { printSubscription(w, sub) })
		},
	}
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <subscription-id>",
		Short: "Cancel a subscription owned by the keypair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := id.ParseSubscriptionID(args[0])
			if err != nil {
				return usageError{err}
			}
			kp, err := a.signer()
			if err != nil {
				return err
			}

			var sub *subscription.Subscription
			err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
				sub, err = eng.CancelSubscription(cmd.Context(), subID, kp.Identity())
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, sub, func(w io.Writer) { printSubscription(w, sub) })
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a record or subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := id.Parse(args[0])
			if err != nil {
				return usageError{err}
			}

			switch handle.Prefix() {
			case id.PrefixRecord:
				var rec *record.Record
				err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
					rec, err = eng.GetRecord(cmd.Context(), handle)
					return err
				})
				if err != nil {
					return err
				}
				return a.emit(cmd, rec, func(w io.Writer) { printRecord(w, rec) })

			case id.PrefixSubscription:
				var sub *subscription.Subscription
				err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
					sub, err = eng.GetSubscription(cmd.Context(), handle)
					return err
				})
				if err != nil {
					return err
				}
				return a.emit(cmd, sub, func(w io.Writer) { printSubscription(w, sub) })

			default:
				return usagef("show: unsupported handle kind %q", handle.Prefix())
			}
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <subscription-id>",
		Short: "Report whether a subscription is active and unexpired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := id.ParseSubscriptionID(args[0])
			if err != nil {
				return usageError{err}
			}

			var sub *subscription.Subscription
			err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
				sub, err = eng.CheckSubscription(cmd.Context(), subID)
				return err
			})
			if err != nil {
				return fmt.Errorf("%s: %w", subID, err)
			}
			return a.emit(cmd, sub, func(w io.Writer) {
				fmt.Fprintf(w, "%s is active until %d\n", sub.ID, sub.EndTime)
			})
		},
	}
}
