package amount

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal is an unsigned fixed-point value: Mantissa × 10^-Scale.
type Decimal struct {
	Mantissa Amount
	Scale    uint32
}

func NewDecimal(mantissa uint64, scale uint32) Decimal {
	return Decimal{Mantissa: FromUint64(mantissa), Scale: scale}
}

// ParseDecimal reads a decimal string such as "10.25". The scale is the
// number of fractional digits as written, so "10.250" keeps a scale of 3.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := parseBounded(s)
	if err != nil {
		return Decimal{}, err
	}
	if d.IsNegative() {
		return Decimal{}, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	if !d.IsZero() && integerDigits(d) > maxDigits {
		return Decimal{}, fmt.Errorf("%w: %q", ErrAmountOverflow, s)
	}

	coefficient := d.Coefficient()
	exp := d.Exponent()
	if exp > 0 {
		if coefficient.Sign() == 0 {
			return Decimal{}, nil
		}
		coefficient.Mul(coefficient, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
		exp = 0
	}

	mantissa, err := fromDecimal(coefficient, s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{Mantissa: mantissa, Scale: uint32(-exp)}, nil
}

// MustParseDecimal is ParseDecimal for constants; it panics on error.
func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MantissaBytes is the minimal big-endian encoding of the mantissa
func (d Decimal) MantissaBytes() []byte {
	return ToMinimalBigEndian(d.Mantissa)
}

func (d Decimal) Equal(o Decimal) bool {
	return d.Scale == o.Scale && d.Mantissa.Equal(o.Mantissa)
}

func (d Decimal) String() string {
	if d.Scale > math.MaxInt32 {
		return fmt.Sprintf("%se-%d", d.Mantissa.String(), d.Scale)
	}
	return decimal.NewFromBigInt(d.Mantissa.Big(), -int32(d.Scale)).String()
}
