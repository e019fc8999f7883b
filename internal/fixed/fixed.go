// Package fixed implements the 30-bit mantissa fixed-point decimal used
// for every price crossing the order queue. The top two bits of the raw
// word select a decimal scale, the low 30 bits hold an unsigned
// mantissa:
//
//	selector 0 -> 1e-8
//	selector 1 -> 1e-4
//	selector 2 -> 1e0
//	selector 3 -> 1e4
//
// The all-zero word doubles as the market-order price sentinel.
package fixed

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Fixed30 uint32

const (
	mantBits = 30
	mantMask = 1<<mantBits - 1

	// MaxMantissa is the largest mantissa representable in 30 bits.
	MaxMantissa = uint32(mantMask)
)

// Zero is the market-order sentinel price.
const Zero Fixed30 = 0

var (
	ErrRange    = errors.New("value not representable as fixed30")
	ErrNegative = errors.New("fixed30 values are unsigned")
)

// scale10 maps the 2-bit selector to 10^(4*sel) used when normalizing
// mantissas of differing selectors against each other.
var scale10 = [4]uint64{1, 1e4, 1e8, 1e12}

// New builds a Fixed30 from a mantissa and scale selector. The mantissa
// is masked to 30 bits, the selector to 2.
func New(mantissa uint32, sel uint8) Fixed30 {
	return Fixed30(uint32(sel&0x3)<<mantBits | mantissa&mantMask)
}

func (f Fixed30) Mantissa() uint32 { return uint32(f) & mantMask }

func (f Fixed30) sel() uint8 { return uint8(f >> mantBits) }

// IsZero reports whether f is the market-order sentinel. A zero
// mantissa is the sentinel regardless of selector.
func (f Fixed30) IsZero() bool { return f.Mantissa() == 0 }

// Cmp compares two prices by value, not by raw word. Mantissas are
// normalized onto the smaller scale in 64-bit arithmetic; a scaled
// mantissa that would overflow is already known to dominate, since the
// other mantissa is below 2^30.
func (f Fixed30) Cmp(other Fixed30) int {
	ma, mb := uint64(f.Mantissa()), uint64(other.Mantissa())
	sa, sb := f.sel(), other.sel()

	switch {
	case sa > sb:
		mult := scale10[sa-sb]
		if ma > 0 && ma > ^uint64(0)/mult {
			return 1
		}
		ma *= mult
	case sb > sa:
		mult := scale10[sb-sa]
		if mb > 0 && mb > ^uint64(0)/mult {
			return -1
		}
		mb *= mult
	}

	switch {
	case ma < mb:
		return -1
	case ma > mb:
		return 1
	}
	return 0
}

// Decimal expands f to an arbitrary-precision decimal.
func (f Fixed30) Decimal() decimal.Decimal {
	return decimal.New(int64(f.Mantissa()), 4*int32(f.sel())-8)
}

func (f Fixed30) String() string {
	return f.Decimal().String()
}

// FromDecimal packs d into the smallest scale that represents it
// exactly, keeping as much precision as the 30-bit mantissa allows.
func FromDecimal(d decimal.Decimal) (Fixed30, error) {
	if d.Sign() < 0 {
		return 0, ErrNegative
	}
	for sel := uint8(0); sel < 4; sel++ {
		m := d.Shift(8 - 4*int32(sel))
		if !m.IsInteger() {
			continue
		}
		if m.Cmp(decimal.NewFromInt(int64(MaxMantissa))) > 0 {
			continue
		}
		return New(uint32(m.IntPart()), sel), nil
	}
	return 0, ErrRange
}

// Parse reads a decimal string such as "12.10".
func Parse(s string) (Fixed30, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return FromDecimal(d)
}
