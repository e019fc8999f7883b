package fixed

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Fixed30 {
	t.Helper()
	f, err := Parse(s)
	require.NoError(t, err)
	return f
}

func TestParse_PicksSmallestScale(t *testing.T) {
	// 12.10 does not fit the 1e-8 scale (1.21e9 > 2^30-1) and lands on
	// 1e-4.
	f := mustParse(t, "12.10")
	assert.Equal(t, uint32(121000), f.Mantissa())
	assert.Equal(t, "12.1", f.String())

	// 1.5 fits the finest scale.
	f = mustParse(t, "1.5")
	assert.Equal(t, uint32(150_000_000), f.Mantissa())
	assert.Equal(t, "1.5", f.String())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("-1")
	assert.ErrorIs(t, err, ErrNegative)

	// Too many significant digits for any scale.
	_, err = Parse("12345678901234567890123")
	assert.ErrorIs(t, err, ErrRange)

	_, err = Parse("not a price")
	assert.Error(t, err)
}

func TestCmp_SameScale(t *testing.T) {
	a := mustParse(t, "12.04")
	b := mustParse(t, "12.10")
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
}

func TestCmp_AcrossScales(t *testing.T) {
	// 5.0 encoded on two different scales must compare equal even
	// though the raw words differ.
	fine := New(500_000_000, 0) // 5e8 * 1e-8
	coarse := New(50000, 1)     // 5e4 * 1e-4
	require.NotEqual(t, uint32(fine), uint32(coarse))
	assert.Equal(t, 0, fine.Cmp(coarse))
	assert.Equal(t, 0, coarse.Cmp(fine))

	// A huge coarse value dominates any fine value that would overflow
	// during normalization.
	huge := New(MaxMantissa, 3) // ~1.07e13
	small := New(MaxMantissa, 0)
	assert.Equal(t, 1, huge.Cmp(small))
	assert.Equal(t, -1, small.Cmp(huge))
}

func TestZeroSentinel(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, mustParse(t, "0.0001").IsZero())

	// The sentinel compares below every real price.
	assert.Equal(t, -1, Zero.Cmp(mustParse(t, "0.0001")))
}

func TestDecimalRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("12.44")
	f, err := FromDecimal(d)
	require.NoError(t, err)
	assert.True(t, d.Equal(f.Decimal()))
}
