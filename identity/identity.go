// Package identity models the cryptographic parties that author records,
// pay for subscriptions, and receive payments.
//
// An Identity is a 32-byte ed25519 public key rendered in base58, the same
// address form the source network uses.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the byte length of an Identity.
const Size = ed25519.PublicKeySize

// ErrInvalid is returned when text or bytes do not decode to an Identity.
var ErrInvalid = errors.New("identity: invalid identity")

// Identity is a party's public key.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Identity [Size]byte

// Zero is the empty identity. It never names a valid signer.
var Zero Identity

// FromBytes copies b into an Identity.
func FromBytes(b []byte) (Identity, error) {
	var i Identity
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalid, Size, len(b))
	}
	copy(i[:], b)
	return i, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Identity, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	return FromBytes(b)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Identity {
	i, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return i
}

// String returns the base58 address.
func (i Identity) String() string {
	return base58.Encode(i[:])
}

// IsZero reports whether i is the empty identity.
func (i Identity) IsZero() bool {
	return i == Zero
}

// Equal reports whether i and other name the same party.
func (i Identity) Equal(other Identity) bool {
	return bytes.Equal(i[:], other[:])
}

// Bytes returns a copy of the raw key.
func (i Identity) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, i[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Identity) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer.
func (i Identity) Value() (driver.Value, error) {
	return i.String(), nil
}

// Scan implements sql.Scanner.
func (i *Identity) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("identity: cannot scan %T into Identity", src)
	}
}
