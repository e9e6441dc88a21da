package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xraph/narrative/identity"
)

// Size is the fixed byte length of an encoded record:
// score(1) + platform(4+20) + alternative(4+20) + timestamp(8) + authority(32).
const Size = 1 + 4 + MaxTextLen + 4 + MaxTextLen + 8 + identity.Size

// ErrLayout is returned when bytes do not hold a well-formed record.
var ErrLayout = errors.New("record: malformed layout")

// MarshalBinary encodes the record in its fixed slot layout. Text fields are
// length-prefixed and zero-padded to MaxTextLen. The handle is not part of
// the slot; it addresses it.
func (r *Record) MarshalBinary() ([]byte, error) {
	if len(r.Platform) > MaxTextLen || len(r.Alternative) > MaxTextLen {
		return nil, fmt.Errorf("%w: text field exceeds %d bytes", ErrLayout, MaxTextLen)
	}

	buf := make([]byte, Size)
	buf[0] = r.Score
	off := 1
	off = putText(buf, off, r.Platform)
	off = putText(buf, off, r.Alternative)
	binary.LittleEndian.PutUint64(buf[off:], uint64(r.Timestamp))
	off += 8
	copy(buf[off:], r.Authority[:])

	return buf, nil
}

// UnmarshalBinary decodes a slot produced by MarshalBinary.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrLayout, Size, len(data))
	}

	r.Score = data[0]
	off := 1
	var err error
	if r.Platform, off, err = getText(data, off); err != nil {
		return err
	}
	if r.Alternative, off, err = getText(data, off); err != nil {
		return err
	}
	r.Timestamp = int64(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	copy(r.Authority[:], data[off:off+identity.Size])

	return nil
}

func putText(buf []byte, off int, s string) int {
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(s)))
	copy(buf[off+4:off+4+MaxTextLen], s)
	return off + 4 + MaxTextLen
}

func getText(data []byte, off int) (string, int, error) {
	n := binary.LittleEndian.Uint32(data[off:])
	if n > MaxTextLen {
		return "", off, fmt.Errorf("%w: text length %d exceeds %d", ErrLayout, n, MaxTextLen)
	}
	s := string(data[off+4 : off+4+int(n)])
	return s, off + 4 + MaxTextLen, nil
}
