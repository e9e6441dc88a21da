package subscription

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xraph/narrative/identity"
)

// Size is the fixed byte length of an encoded subscription:
// subscriber(32) + start(8) + end(8) + active(1).
const Size = identity.Size + 8 + 8 + 1

// ErrLayout is returned when bytes do not hold a well-formed subscription.
var ErrLayout = errors.New("subscription: malformed layout")

// MarshalBinary encodes the subscription in its fixed slot layout.
func (s *Subscription) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	copy(buf, s.Subscriber[:])
	off := identity.Size
	binary.LittleEndian.PutUint64(buf[off:], uint64(s.StartTime))
	binary.LittleEndian.PutUint64(buf[off+8:], uint64(s.EndTime))
	if s.Active {
		buf[off+16] = 1
	}
	return buf, nil
}

// UnmarshalBinary decodes a slot produced by MarshalBinary.
func (s *Subscription) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrLayout, Size, len(data))
	}
	off := identity.Size
	if data[off+16] > 1 {
		return fmt.Errorf("%w: active flag %d", ErrLayout, data[off+16])
	}
	copy(s.Subscriber[:], data[:off])
	s.StartTime = int64(binary.LittleEndian.Uint64(data[off:]))
	s.EndTime = int64(binary.LittleEndian.Uint64(data[off+8:]))
	s.Active = data[off+16] == 1
	return nil
}
