package narrative

import (
	"fmt"

	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
)

// ValidateRecordInput checks a record against its field bounds. Lengths are
// measured in bytes.
func ValidateRecordInput(in record.Input) error {
	if in.Score > record.MaxScore {
		return ValidationError{
			Field:   "score",
			Message: fmt.Sprintf("%d exceeds %d", in.Score, record.MaxScore),
			Err:     ErrInvalidScore,
		}
	}
	if len(in.Platform) > record.MaxTextLen {
		return ValidationError{
			Field:   "platform",
			Message: fmt.Sprintf("%d bytes exceeds %d", len(in.Platform), record.MaxTextLen),
			Err:     ErrPlatformTooLong,
		}
	}
	if len(in.Alternative) > record.MaxTextLen {
		return ValidationError{
			Field:   "alternative",
			Message: fmt.Sprintf("%d bytes exceeds %d", len(in.Alternative), record.MaxTextLen),
			Err:     ErrAlternativeTooLong,
		}
	}
	return nil
}

func validateSigner(who identity.Identity) error {
	if who.IsZero() {
		return ErrInvalidSigner
	}
	return nil
}

func validateDuration(days uint16) error {
	if days == 0 {
		return ValidationError{Field: "duration_days", Message: "must be at least 1", Err: ErrInvalidDuration}
	}
	return nil
}
