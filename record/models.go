// Package record defines narrative-shift records: immutable assessments that
// an audience is moving from one platform to an alternative.
package record

import (
	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
)

// Bounds on record fields.
const (
	MaxScore   = 100 // Score is a confidence scaled to 0..100
	MaxTextLen = 20  // Platform and Alternative are at most 20 bytes
)

// Record is a persisted narrative-shift assessment. Once created it is never
// updated or deleted.
type Record struct {
	ID          id.RecordID       `json:"id"`
	Score       uint8             `json:"score"`
	Platform    string            `json:"platform"`
	Alternative string            `json:"alternative"`
	Timestamp   int64             `json:"timestamp"`
	Authority   identity.Identity `json:"authority"`
}

// Input carries the caller-supplied fields of a new record.
type Input struct {
	Score       uint8  `json:"score"`
	Platform    string `json:"platform"`
	Alternative string `json:"alternative"`
	Timestamp   int64  `json:"timestamp"`
}

// Confidence returns the score as a fraction in [0,1].
func (r *Record) Confidence() float64 {
	return float64(r.Score) / MaxScore
}
