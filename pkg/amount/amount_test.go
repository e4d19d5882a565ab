package amount

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinimalBigEndian(t *testing.T) {
	tests := []struct {
		name     string
		value    uint64
		expected []byte
	}{
		{name: "zero is a single zero byte", value: 0, expected: []byte{0x00}},
		{name: "one", value: 1, expected: []byte{0x01}},
		{name: "255", value: 255, expected: []byte{0xff}},
		{name: "256", value: 256, expected: []byte{0x01, 0x00}},
		{name: "100000", value: 100000, expected: []byte{0x01, 0x86, 0xa0}},
		{name: "1025", value: 1025, expected: []byte{0x04, 0x01}},
		{name: "max uint64", value: ^uint64(0), expected: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToMinimalBigEndian(FromUint64(tt.value)))
		})
	}
}

func TestToMinimalBigEndian_NoLeadingZero(t *testing.T) {
	for _, v := range []uint64{1, 127, 128, 255, 256, 65535, 65536, 1 << 40} {
		b := ToMinimalBigEndian(FromUint64(v))
		require.NotEqual(t, byte(0), b[0], "value %d", v)
	}
}

func TestFromBig(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	a, err := FromBig(max)
	require.NoError(t, err)
	assert.Len(t, a.Bytes(), MaxWidth)

	_, err = FromBig(new(big.Int).Add(max, big.NewInt(1)))
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = FromBig(big.NewInt(-1))
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = FromBig(nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParse(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		expectedErr error
	}{
		{input: "0", expected: "0"},
		{input: "100000", expected: "100000"},
		{input: " 42 ", expected: "42"},
		{input: "1e5", expected: "100000"},
		{input: "100.0", expected: "100"},
		{input: "1.5", expectedErr: ErrInvalidAmount},
		{input: "", expectedErr: ErrInvalidAmount},
		{input: "abc", expectedErr: ErrInvalidAmount},
		{input: "-7", expectedErr: ErrNegativeAmount},
		{input: "1" + strings.Repeat("0", 80), expectedErr: ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a, err := Parse(tt.input)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a.String())
		})
	}
}

func TestParseCurrencyUnit(t *testing.T) {
	tests := []struct {
		value     string
		magnitude int32
		expected  string
	}{
		{value: "1", magnitude: 8, expected: "100000000"},
		{value: "0.001", magnitude: 8, expected: "100000"},
		{value: "1,5", magnitude: 2, expected: "150"},
		{value: "0.015", magnitude: 2, expected: "2"},
		{value: "0.014", magnitude: 2, expected: "1"},
		{value: "12", magnitude: 0, expected: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			a, err := ParseCurrencyUnit(tt.value, tt.magnitude)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a.String())
		})
	}

	_, err := ParseCurrencyUnit("not-a-number", 8)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseCurrencyUnit("-1", 8)
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestFromBigEndian_RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 100000, ^uint64(0)} {
		a := FromUint64(v)
		back, err := FromBigEndian(ToMinimalBigEndian(a))
		require.NoError(t, err)
		assert.True(t, a.Equal(back), "value %d", v)
	}

	_, err := FromBigEndian(make([]byte, MaxWidth+1))
	require.NoError(t, err, "leading zeros do not count toward the width")

	tooWide := append([]byte{0x01}, make([]byte, MaxWidth)...)
	_, err = FromBigEndian(tooWide)
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestAmount_JSON(t *testing.T) {
	small := FromUint64(100000)
	data, err := json.Marshal(small)
	require.NoError(t, err)
	assert.Equal(t, "100000", string(data))

	huge, err := Parse("123456789012345678901234567890")
	require.NoError(t, err)
	data, err = json.Marshal(huge)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(data))

	var fromNumber Amount
	require.NoError(t, json.Unmarshal([]byte("42"), &fromNumber))
	assert.Equal(t, "42", fromNumber.String())

	var fromString Amount
	require.NoError(t, json.Unmarshal([]byte(`"123456789012345678901234567890"`), &fromString))
	assert.True(t, huge.Equal(fromString))

	var bad Amount
	require.ErrorIs(t, json.Unmarshal([]byte(`-3`), &bad), ErrNegativeAmount)
	require.ErrorIs(t, json.Unmarshal([]byte(`null`), &bad), ErrInvalidAmount)
}

func TestDecimal(t *testing.T) {
	d, err := ParseDecimal("10.25")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDecimal(1025, 2)))
	assert.Equal(t, []byte{0x04, 0x01}, d.MantissaBytes())
	assert.Equal(t, "10.25", d.String())

	whole, err := ParseDecimal("3e2")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), whole.Scale)
	assert.Equal(t, "300", whole.Mantissa.String())

	_, err = ParseDecimal("-1.5")
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseDecimal("ten")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParse_ExponentsAreBoundedBeforeExpansion(t *testing.T) {
	tests := []struct {
		input       string
		expectedErr error
		currencyErr error
	}{
		{input: "1e10000000", expectedErr: ErrAmountOverflow, currencyErr: ErrAmountOverflow},
		{input: "1e1000000000", expectedErr: ErrAmountOverflow, currencyErr: ErrAmountOverflow},
		{input: "9e78", expectedErr: ErrAmountOverflow, currencyErr: ErrAmountOverflow},
		{input: "1e-1000000000", expectedErr: ErrInvalidAmount},
		{input: "-1e1000000000", expectedErr: ErrNegativeAmount, currencyErr: ErrNegativeAmount},
		{input: strings.Repeat("9", maxInputLength+1), expectedErr: ErrInvalidAmount, currencyErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.input[:min(len(tt.input), 16)], func(t *testing.T) {
			start := time.Now()
			_, err := Parse(tt.input)
			require.ErrorIs(t, err, tt.expectedErr)
			assert.Less(t, time.Since(start), time.Second)
			assert.Less(t, len(err.Error()), 256, "error must not echo an expanded value")

			start = time.Now()
			_, err = ParseCurrencyUnit(tt.input, 8)
			if tt.currencyErr != nil {
				require.ErrorIs(t, err, tt.currencyErr)
			} else {
				require.NoError(t, err)
			}
			assert.Less(t, time.Since(start), time.Second)
		})
	}

	zero, err := Parse("0e1000000000")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	tiny, err := ParseCurrencyUnit("1e-1000000000", 8)
	require.NoError(t, err)
	assert.True(t, tiny.IsZero(), "sub-unit values round to zero")

	_, err = ParseCurrencyUnit("1", 79)
	require.ErrorIs(t, err, ErrInvalidAmount)

	edge, err := Parse("1e77")
	require.NoError(t, err)
	assert.Len(t, edge.Bytes(), 32)

	var fromJSON Amount
	start := time.Now()
	require.ErrorIs(t, json.Unmarshal([]byte("1e10000000"), &fromJSON), ErrAmountOverflow)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseDecimal_ExponentsAreBounded(t *testing.T) {
	start := time.Now()
	_, err := ParseDecimal("1e10000000")
	require.ErrorIs(t, err, ErrAmountOverflow)
	assert.Less(t, time.Since(start), time.Second)

	zero, err := ParseDecimal("0e1000000000")
	require.NoError(t, err)
	assert.True(t, zero.Mantissa.IsZero())

	assert.True(t, MustParseDecimal("10.25").Equal(NewDecimal(1025, 2)))
	assert.Panics(t, func() { MustParseDecimal("-1") })
}

func FuzzToMinimalBigEndian(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(255))
	f.Add(uint64(256))
	f.Add(^uint64(0))

	f.Fuzz(func(t *testing.T, v uint64) {
		b := ToMinimalBigEndian(FromUint64(v))
		require.NotEmpty(t, b)
		require.LessOrEqual(t, len(b), 8)
		if v != 0 {
			require.NotEqual(t, byte(0), b[0])
		}
		require.Equal(t, new(big.Int).SetUint64(v), new(big.Int).SetBytes(b))
	})
}
