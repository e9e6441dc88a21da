// Output formatting shared by the narrative subcommands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
)

// emit writes v as indented JSON under --json and calls human otherwise.
func (a *app) emit(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.jsonMode {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	human(w)
	return nil
}

func printRecord(w io.Writer, r *record.Record) {
	fmt.Fprintf(w, "Record:      %s\n", r.ID)
	fmt.Fprintf(w, "Score:       %d\n", r.Score)
	fmt.Fprintf(w, "Platform:    %s\n", r.Platform)
	fmt.Fprintf(w, "Alternative: %s\n", r.Alternative)
	fmt.Fprintf(w, "Timestamp:   %d\n", r.Timestamp)
	fmt.Fprintf(w, "Authority:   %s\n", r.Authority)
}

func printSubscription(w io.Writer, s *subscription.Subscription) {
	fmt.Fprintf(w, "Subscription: %s\n", s.ID)
	fmt.Fprintf(w, "Subscriber:   %s\n", s.Subscriber)
	fmt.Fprintf(w, "Start:        %d\n", s.StartTime)
	fmt.Fprintf(w, "End:          %d\n", s.EndTime)
	fmt.Fprintf(w, "Days:         %d\n", s.DurationDays())
	fmt.Fprintf(w, "Price:        %s\n", s.Price)
	fmt.Fprintf(w, "Active:       %t\n", s.Active)
}
