// Package types provides value types shared across narrative packages.
package types

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL int64 = 1_000_000_000

// solDecimals is the number of fractional digits of one SOL.
const solDecimals = 9

// Lamports is an amount of native currency in its smallest unit.
// All arithmetic is integer-only.
//
// Examples:
//   - Lamports(100_000_000) = 0.1 SOL
//   - SOL(3)                = 3 SOL
type Lamports int64

// SOL returns whole SOL expressed in lamports.
func SOL(whole int64) Lamports { return Lamports(whole * LamportsPerSOL) }

// Add returns l + other.
func (l Lamports) Add(other Lamports) Lamports { return l + other }

// CheckedAdd returns l + other and false if the sum overflows int64.
func (l Lamports) CheckedAdd(other Lamports) (Lamports, bool) {
	sum := l + other
	if (other > 0 && sum < l) || (other < 0 && sum > l) {
		return 0, false
	}
	return sum, true
}

// MulDiv returns l*num/den rounded down, computed without intermediate
// overflow. Panics if den is zero or any operand is negative.
func (l Lamports) MulDiv(num, den int64) Lamports {
	if den == 0 {
		panic("lamports: division by zero")
	}
	if l < 0 || num < 0 || den < 0 {
		panic("lamports: negative operand in MulDiv")
	}
	hi, lo := bits.Mul64(uint64(l), uint64(num))
	if hi >= uint64(den) {
		panic("lamports: MulDiv overflow")
	}
	q, _ := bits.Div64(hi, lo, uint64(den))
	return Lamports(q)
}

// IsZero reports whether the amount is zero.
func (l Lamports) IsZero() bool { return l == 0 }

// IsPositive reports whether the amount is greater than zero.
func (l Lamports) IsPositive() bool { return l > 0 }

// IsNegative reports whether the amount is less than zero.
func (l Lamports) IsNegative() bool { return l < 0 }

// FormatSOL renders the amount in SOL with trailing zeros trimmed,
// e.g. "0.1" for 100_000_000 lamports.
func (l Lamports) FormatSOL() string {
	neg := l < 0
	abs := int64(l)
	if neg {
		abs = -abs
	}

	whole := abs / LamportsPerSOL
	frac := abs % LamportsPerSOL

	s := strconv.FormatInt(whole, 10)
	if frac != 0 {
		f := fmt.Sprintf("%0*d", solDecimals, frac)
		s += "." + strings.TrimRight(f, "0")
	}
	if neg {
		return "-" + s
	}
	return s
}

// String returns the amount with its unit, e.g. "0.1 SOL".
func (l Lamports) String() string {
	return l.FormatSOL() + " SOL"
}

// ParseSOL parses a decimal SOL amount such as "0.25" or "3" into lamports.
func ParseSOL(s string) (Lamports, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("lamports: empty amount")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if !digits(whole) || !digits(frac) {
		return 0, fmt.Errorf("lamports: invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("lamports: invalid amount %q", s)
	}
	if w > (1<<63-1)/LamportsPerSOL {
		return 0, fmt.Errorf("lamports: amount %q out of range", s)
	}

	var f int64
	if hasFrac {
		if frac == "" || len(frac) > solDecimals {
			return 0, fmt.Errorf("lamports: invalid fraction in %q", s)
		}
		f, err = strconv.ParseInt(frac+strings.Repeat("0", solDecimals-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("lamports: invalid amount %q", s)
		}
	}

	total, ok := Lamports(w * LamportsPerSOL).CheckedAdd(Lamports(f))
	if !ok {
		return 0, fmt.Errorf("lamports: amount %q out of range", s)
	}
	return total, nil
}

// digits reports whether s holds only ASCII digits. Signs are not digits.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
