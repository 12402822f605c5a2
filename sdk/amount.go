package sdk

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrAmountRange is returned when a value does not fit in 128 bits.
var ErrAmountRange = errors.New("amount exceeds 128 bits")

// Amount is an unsigned 128-bit quantity of the smallest currency unit.
// Arithmetic is carried out on 256-bit words so intermediate products of
// two amounts never wrap.
type Amount struct {
	v uint256.Int
}

// MaxAmount is 2^128 - 1.
var MaxAmount = func() Amount {
	var a Amount
	a.v.Lsh(uint256.NewInt(1), 128)
	a.v.SubUint64(&a.v, 1)
	return a
}()

// AmountFromUint64 wraps a uint64.
func AmountFromUint64(x uint64) Amount {
	var a Amount
	a.v.SetUint64(x)
	return a
}

// AmountFromInt converts a 256-bit integer, failing when it needs more than 128 bits.
func AmountFromInt(x *uint256.Int) (Amount, error) {
	if x.BitLen() > 128 {
		return Amount{}, ErrAmountRange
	}
	var a Amount
	a.v.Set(x)
	return a, nil
}

// ParseAmount parses a base-10 integer string. Fractions, signs and
// exponents are rejected: amounts are always integral smallest units.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, errors.New("empty amount")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Amount{}, fmt.Errorf("invalid amount %q", s)
		}
	}
	x, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return AmountFromInt(x)
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Int returns a copy of the value as a 256-bit integer.
func (a Amount) Int() *uint256.Int { return a.v.Clone() }

func (a Amount) String() string { return a.v.Dec() }

func (a Amount) IsZero() bool { return a.v.IsZero() }

func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Add returns a+b and false when the sum leaves the 128-bit range.
func (a Amount) Add(b Amount) (Amount, bool) {
	var r Amount
	r.v.Add(&a.v, &b.v)
	if r.v.BitLen() > 128 {
		return Amount{}, false
	}
	return r, true
}

// SaturatingAdd returns a+b clamped to MaxAmount.
func (a Amount) SaturatingAdd(b Amount) Amount {
	r, ok := a.Add(b)
	if !ok {
		return MaxAmount
	}
	return r
}

// Sub returns a-b and false when b > a.
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.Cmp(b) < 0 {
		return Amount{}, false
	}
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r, true
}

// Bytes16 is the fixed-width big-endian encoding used in state records.
func (a Amount) Bytes16() [16]byte {
	full := a.v.Bytes32()
	var out [16]byte
	copy(out[:], full[16:])
	return out
}

// AmountFromBytes16 decodes Bytes16.
func AmountFromBytes16(b [16]byte) Amount {
	var a Amount
	a.v.SetBytes(b[:])
	return a
}

// MarshalJSON writes the amount as a quoted decimal string so clients
// without big integer support do not lose precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
