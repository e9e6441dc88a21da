// Scan command: score a batch of posts and optionally record the result.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/narrative"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/sentiment"
)

type scanResult struct {
	Platform string          `json:"platform"`
	Analysis sentiment.Batch `json:"analysis"`
	Record   *record.Record  `json:"record,omitempty"`
}

func newScanCmd(a *app) *cobra.Command {
	var (
		input     string
		platform  string
		alt       string
		platforms []string
		store     bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Score migration sentiment in a batch of posts",
		Long: `Reads posts as JSON lines, one {"text": ..., "created_at": ...} object per
line, from --input or stdin. With --record the batch score is stored as a
narrative record signed by the keypair.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := readPosts(cmd, input)
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				return usagef("scan: no posts to analyze")
			}

			var opts []sentiment.Option
			if len(platforms) > 0 {
				opts = append(opts, sentiment.WithPlatforms(platforms...))
			}
			res := scanResult{
				Platform: platform,
				Analysis: sentiment.New(opts...).AnalyzeBatch(posts),
			}

			if store {
				in := res.Analysis.Record(platform, time.Now().Unix())
				if cmd.Flags().Changed("alternative") {
					in.Alternative = alt
				}
				if in.Alternative == "" {
					return usagef("scan: no alternative platform detected (pass --alternative)")
				}
				kp, err := a.signer()
				if err != nil {
					return err
				}
				err = a.withEngine(cmd.Context(), func(eng *narrative.Engine) error {
					res.Record, err = eng.CreateRecord(cmd.Context(), in, kp.Identity())
					return err
				})
				if err != nil {
					return err
				}
			}

			return a.emit(cmd, res, func(w io.Writer) { printScan(w, res) })
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON lines file of posts (- for stdin)")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "platform the posts are about")
	cmd.Flags().StringSliceVar(&platforms, "targets", nil, "platforms recognized as migration targets (default: built-in list)")
	cmd.Flags().StringVar(&alt, "alternative", "", "alternative to record instead of the detected one")
	cmd.Flags().BoolVar(&store, "record", false, "store the score as a narrative record")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func readPosts(cmd *cobra.Command, path string) ([]sentiment.Post, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, usagef("scan: %v", err)
		}
		defer f.Close()
		r = f
	}

	var posts []sentiment.Post
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var p sentiment.Post
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, usagef("scan: line %d: %v", n, err)
		}
		posts = append(posts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: read posts: %w", err)
	}
	return posts, nil
}

func printScan(w io.Writer, res scanResult) {
	b := res.Analysis
	alt := b.TopAlternative
	if alt == "" {
		alt = "N/A"
	}
	fmt.Fprintf(w, "Platform:        %s\n", res.Platform)
	fmt.Fprintf(w, "Migration score: %.2f\n", b.Score)
	fmt.Fprintf(w, "Volume:          %d\n", b.Volume)
	fmt.Fprintf(w, "Velocity:        %.1f posts/hour\n", b.Velocity)
	fmt.Fprintf(w, "Top alternative: %s\n", alt)
	fmt.Fprintf(w, "Sentiment:       %d positive, %d negative, %d neutral\n",
		b.Breakdown.Positive, b.Breakdown.Negative, b.Breakdown.Neutral)
	if b.High() {
		fmt.Fprintln(w, "HIGH MIGRATION NARRATIVE DETECTED")
	}
	if res.Record != nil {
		fmt.Fprintln(w)
		printRecord(w, res.Record)
	}
}
