// Package sentiment scores how strongly a batch of posts signals users moving
// away from one platform to another. A Batch converts to the 0-100 score a
// narrative record carries.
package sentiment

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/xraph/narrative/record"
)

// HighMigration is the batch score above which a narrative is flagged.
const HighMigration = 0.6

// Polarity bands for Breakdown.
const (
	positiveAbove = 0.2
	negativeBelow = -0.2
)

// Post is one piece of text to analyze. CreatedAt may be zero when unknown.
type Post struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is the analysis of a single text.
type Result struct {
	// Score is the polarity in [-1, 1].
	Score float64 `json:"score"`
	// Magnitude is how many opinion words appeared, scaled to [0, 1].
	Magnitude       float64 `json:"magnitude"`
	MigrationIntent bool    `json:"migration_intent"`
	// Target is the first known platform mentioned, or empty.
	Target string `json:"target,omitempty"`
}

// Breakdown counts results by polarity band.
type Breakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Batch summarizes a set of posts about one source platform.
type Batch struct {
	// Score is the migration score in [0, 1].
	Score  float64 `json:"score"`
	Volume int     `json:"volume"`
	// Velocity is posts per hour across the batch's time span, rounded to one
	// decimal.
	Velocity       float64   `json:"velocity"`
	TopAlternative string    `json:"top_alternative,omitempty"`
	Breakdown      Breakdown `json:"breakdown"`
}

// High reports whether the batch crosses HighMigration.
func (b Batch) High() bool { return b.Score > HighMigration }

// RecordScore maps Score onto the 0-100 scale of a narrative record.
func (b Batch) RecordScore() uint8 {
	s := math.Round(b.Score * 100)
	switch {
	case s <= 0 || math.IsNaN(s):
		return 0
	case s >= record.MaxScore:
		return record.MaxScore
	default:
		return uint8(s)
	}
}

// Record builds the record input for this batch. The alternative is the
// batch's top alternative platform.
func (b Batch) Record(platform string, timestamp int64) record.Input {
	return record.Input{
		Score:       b.RecordScore(),
		Platform:    platform,
		Alternative: b.TopAlternative,
		Timestamp:   timestamp,
	}
}

// Analyzer scores text against fixed word lists. The zero value has empty
// lists; use New.
type Analyzer struct {
	positive  []string
	negative  []string
	migration []string
	platforms []string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithPlatforms replaces the platforms recognized as migration targets.
// Earlier entries win when a text names several.
func WithPlatforms(platforms ...string) Option {
	return func(a *Analyzer) { a.platforms = platforms }
}

// New returns an Analyzer with the default word lists.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		positive: []string{
			"moving", "migrated", "switching", "better", "best", "love", "prefer",
			"join", "coming", "excited", "recommend", "upgrade", "improved",
		},
		negative: []string{
			"hate", "terrible", "awful", "quit", "leaving", "done", "never",
			"worst", "horrible", "disgusting", "privacy", "kyc", "biometric",
		},
		migration: []string{
			"moving", "migrate", "migration", "switch", "switching", "quit",
			"leaving", "left", "exodus", "alternative", "instead",
		},
		platforms: []string{"telegram", "bluesky", "mastodon", "signal", "matrix", "guilded"},
	}
	for _, opt := range opts {
		opt(a)
	}
	platforms := make([]string, len(a.platforms))
	for i, p := range a.platforms {
		platforms[i] = normalize(p)
	}
	a.platforms = platforms
	return a
}

// normalize folds case after NFKC so lookalike forms match the word lists.
func normalize(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Analyze scores one text. Words match as substrings, so "switching" also
// counts toward "switch".
func (a *Analyzer) Analyze(text string) Result {
	t := normalize(text)

	pos := countContained(t, a.positive)
	neg := countContained(t, a.negative)
	words := len(strings.Split(text, " "))
	score := float64(pos-neg) / math.Max(float64(words)*0.1, 1)

	r := Result{
		Score:           clamp(score, -1, 1),
		Magnitude:       math.Min(1, float64(pos+neg)/5),
		MigrationIntent: countContained(t, a.migration) > 0,
	}
	for _, p := range a.platforms {
		if strings.Contains(t, p) {
			r.Target = p
			break
		}
	}
	return r
}

// AnalyzeBatch summarizes posts. An empty batch scores zero.
func (a *Analyzer) AnalyzeBatch(posts []Post) Batch {
	if len(posts) == 0 {
		return Batch{}
	}

	var (
		b         = Batch{Volume: len(posts)}
		migrating int
		total     float64
		counts    = make(map[string]int)
		seen      []string
		first     time.Time
		last      time.Time
		stamped   int
	)
	for _, p := range posts {
		r := a.Analyze(p.Text)
		total += r.Score
		if r.MigrationIntent {
			migrating++
		}
		switch {
		case r.Score > positiveAbove:
			b.Breakdown.Positive++
		case r.Score < negativeBelow:
			b.Breakdown.Negative++
		default:
			b.Breakdown.Neutral++
		}
		if r.Target != "" {
			if counts[r.Target] == 0 {
				seen = append(seen, r.Target)
			}
			counts[r.Target]++
		}
		if !p.CreatedAt.IsZero() {
			if stamped == 0 || p.CreatedAt.Before(first) {
				first = p.CreatedAt
			}
			if stamped == 0 || p.CreatedAt.After(last) {
				last = p.CreatedAt
			}
			stamped++
		}
	}

	// Ties go to the platform seen first.
	for _, p := range seen {
		if counts[p] > counts[b.TopAlternative] {
			b.TopAlternative = p
		}
	}

	var velocity float64
	if stamped >= 2 {
		if hours := last.Sub(first).Hours(); hours > 0 {
			velocity = float64(len(posts)) / hours
		} else {
			velocity = float64(len(posts))
		}
	}

	n := float64(len(posts))
	b.Score = clamp(
		float64(migrating)/n*0.4+
			math.Abs(total/n)*0.3+
			math.Min(velocity/10, 1)*0.3,
		0, 1)
	b.Velocity = math.Round(velocity*10) / 10
	return b
}

func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
