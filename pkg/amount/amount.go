package amount

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrAmountOverflow is returned when a value does not fit in 256 bits
	ErrAmountOverflow = errors.New("amount overflows 256 bits")

	// ErrNegativeAmount is returned for values below zero
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInvalidAmount is returned for input that is not an integer amount
	ErrInvalidAmount = errors.New("invalid amount")
)

// MaxWidth is the widest big-endian encoding an Amount can produce, in bytes.
const MaxWidth = 32

// maxDigits is the decimal width of the largest Amount, 2^256-1
const maxDigits = 78

// maxInputLength bounds the text Parse and friends will look at
const maxInputLength = 128

// maxJSONSafeInteger is the largest integer a JavaScript number holds exactly.
const maxJSONSafeInteger = 1<<53 - 1

// Amount is a non-negative integer quantity expressed in the currency's
// smallest unit. The zero value is 0.
type Amount struct {
	v uint256.Int
}

// FromUint64 wraps a native unsigned value
func FromUint64(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// FromBig converts a big integer, rejecting negatives and values wider than 256 bits.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Amount{}, fmt.Errorf("%w: nil value", ErrInvalidAmount)
	}
	if b.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %d bits", ErrAmountOverflow, b.BitLen())
	}
	return Amount{v: *v}, nil
}

// Parse reads a base-10 integer. Exponent notation is accepted as long as
// the value is integral ("1e5" is 100000, "1.5" is rejected).
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	d, err := parseBounded(s)
	if err != nil {
		return Amount{}, err
	}
	switch digits := integerDigits(d); {
	case d.IsZero():
		return Amount{}, nil
	case d.IsNegative():
		return Amount{}, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	case digits > maxDigits:
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountOverflow, s)
	case digits <= 0 || !d.IsInteger():
		return Amount{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, s)
	}
	return fromDecimal(d.BigInt(), s)
}

// ParseCurrencyUnit converts a human-readable value ("0.5", "1,25") into the
// currency's smallest unit by shifting it magnitude decimal places and
// rounding half-up to an integer.
func ParseCurrencyUnit(value string, magnitude int32) (Amount, error) {
	if magnitude < 0 || magnitude > maxDigits {
		return Amount{}, fmt.Errorf("%w: magnitude %d out of range 0-%d", ErrInvalidAmount, magnitude, maxDigits)
	}
	str := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	d, err := parseBounded(str)
	if err != nil {
		return Amount{}, err
	}
	if d.IsZero() {
		return Amount{}, nil
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: %q", ErrNegativeAmount, value)
	}

	// the shifted value is below 10^digits
	switch digits := integerDigits(d) + int64(magnitude); {
	case digits > maxDigits:
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountOverflow, value)
	case digits < 0:
		return Amount{}, nil
	}
	return fromDecimal(d.Shift(magnitude).Round(0).BigInt(), value)
}

// parseBounded parses s without expanding any exponent it carries
func parseBounded(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if len(s) > maxInputLength {
		return decimal.Decimal{}, fmt.Errorf("%w: %d characters exceeds %d", ErrInvalidAmount, len(s), maxInputLength)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return d, nil
}

// integerDigits is the number of digits left of the decimal point in the
// written value, computed from the coefficient and exponent only.
func integerDigits(d decimal.Decimal) int64 {
	return int64(d.NumDigits()) + int64(d.Exponent())
}

func fromDecimal(b *big.Int, input string) (Amount, error) {
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountOverflow, input)
	}
	return Amount{v: *v}, nil
}

// ToMinimalBigEndian returns the shortest big-endian byte string for a.
// Zero encodes as a single zero byte.
func ToMinimalBigEndian(a Amount) []byte {
	if a.v.IsZero() {
		return []byte{0x00}
	}
	return a.v.Bytes()
}

// FromBigEndian is the inverse of ToMinimalBigEndian. Leading zero bytes are allowed.
func FromBigEndian(b []byte) (Amount, error) {
	trimmed := bytes.TrimLeft(b, "\x00")
	if len(trimmed) > MaxWidth {
		return Amount{}, fmt.Errorf("%w: %d bytes", ErrAmountOverflow, len(trimmed))
	}
	var a Amount
	a.v.SetBytes(trimmed)
	return a, nil
}

// Bytes is shorthand for ToMinimalBigEndian(a)
func (a Amount) Bytes() []byte {
	return ToMinimalBigEndian(a)
}

func (a Amount) String() string {
	return a.v.Dec()
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Equal(b Amount) bool {
	return a.v.Eq(&b.v)
}

// Big returns a copy of the value as a big.Int
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// Uint64 returns the value and whether it fits in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// MarshalJSON emits a JSON number when the value is exactly representable
// by a JavaScript number, and a decimal string otherwise.
func (a Amount) MarshalJSON() ([]byte, error) {
	if v, ok := a.Uint64(); ok && v <= maxJSONSafeInteger {
		return []byte(a.String()), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON number or a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		raw = s
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
