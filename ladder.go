package cbor

import (
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// This file is the numeric conversion ladder: the rules by which a typed
// getter reconciles the item actually on the wire with the type the
// caller asked for. Every rule here mirrors a specific invariant from the
// decimal-fraction/bigfloat/bignum-to-integer conversion the teacher's
// reader intentionally leaves to a higher layer (it only ever hands back
// exact wire representations).

func bignumToBigInt(b *bignumValue) *big.Int {
	v := new(big.Int).SetBytes(b.Magnitude)
	if b.Negative {
		v.Neg(v)
	}
	return v
}

func (d *Decoder) convertToInt64(item *Item, mask uint32) (int64, error) {
	switch item.Kind {
	case ItemInt64:
		return item.Int, nil

	case ItemUint64:
		if mask&ConvUInt64 == 0 {
			return 0, ErrUnexpectedType
		}
		if item.Uint > math.MaxInt64 {
			return 0, ErrIntOverflow
		}
		return int64(item.Uint), nil

	case ItemNegativeBignumRaw:
		if mask&ConvXInt64 == 0 {
			return 0, ErrUnexpectedType
		}
		return 0, ErrIntOverflow

	case ItemFloat16, ItemFloat32, ItemFloat64:
		if mask&ConvFloat == 0 {
			return 0, ErrUnexpectedType
		}
		return floatToInt64(item.Float)

	case ItemBignum:
		if mask&ConvBigNum == 0 {
			return 0, ErrUnexpectedType
		}
		bi := bignumToBigInt(item.Mantissa)
		if !bi.IsInt64() {
			return 0, ErrConversionUnderOverflow
		}
		return bi.Int64(), nil

	case ItemDecimalFraction:
		if mask&ConvDecimalFraction == 0 {
			return 0, ErrUnexpectedType
		}
		return scaledToInt64(item.Mantissa, item.Exp, 10)

	case ItemBigFloat:
		if mask&ConvBigFloat == 0 {
			return 0, ErrUnexpectedType
		}
		return scaledToInt64(item.Mantissa, item.Exp, 2)

	default:
		return 0, ErrUnexpectedType
	}
}

func (d *Decoder) convertToUint64(item *Item, mask uint32) (uint64, error) {
	switch item.Kind {
	case ItemUint64:
		return item.Uint, nil

	case ItemInt64:
		if mask&ConvInt64 == 0 {
			return 0, ErrUnexpectedType
		}
		if item.Int < 0 {
			return 0, ErrNumberSignConversion
		}
		return uint64(item.Int), nil

	case ItemNegativeBignumRaw:
		return 0, ErrNumberSignConversion

	case ItemFloat16, ItemFloat32, ItemFloat64:
		if mask&ConvFloat == 0 {
			return 0, ErrUnexpectedType
		}
		if item.Float < 0 {
			return 0, ErrNumberSignConversion
		}
		iv, err := floatToInt64(item.Float)
		if err != nil {
			return 0, err
		}
		return uint64(iv), nil

	case ItemBignum:
		if mask&ConvBigNum == 0 {
			return 0, ErrUnexpectedType
		}
		bi := bignumToBigInt(item.Mantissa)
		if bi.Sign() < 0 {
			return 0, ErrNumberSignConversion
		}
		if !bi.IsUint64() {
			return 0, ErrConversionUnderOverflow
		}
		return bi.Uint64(), nil

	case ItemDecimalFraction:
		if mask&ConvDecimalFraction == 0 {
			return 0, ErrUnexpectedType
		}
		return scaledToUint64(item.Mantissa, item.Exp, 10)

	case ItemBigFloat:
		if mask&ConvBigFloat == 0 {
			return 0, ErrUnexpectedType
		}
		return scaledToUint64(item.Mantissa, item.Exp, 2)

	default:
		return 0, ErrUnexpectedType
	}
}

func (d *Decoder) convertToDouble(item *Item, mask uint32) (float64, error) {
	switch item.Kind {
	case ItemFloat16, ItemFloat32, ItemFloat64:
		return item.Float, nil

	case ItemUint64:
		if mask&ConvUInt64 == 0 {
			return 0, ErrUnexpectedType
		}
		return float64(item.Uint), nil

	case ItemInt64:
		if mask&ConvInt64 == 0 {
			return 0, ErrUnexpectedType
		}
		return float64(item.Int), nil

	case ItemBignum, ItemNegativeBignumRaw:
		if mask&ConvBigNum == 0 {
			return 0, ErrUnexpectedType
		}
		bi := bignumToBigInt(item.Mantissa)
		f := new(big.Float).SetInt(bi)
		v, _ := f.Float64()
		return v, nil

	case ItemDecimalFraction:
		if mask&ConvDecimalFraction == 0 {
			return 0, ErrUnexpectedType
		}
		return decimalFractionToFloat64(item.Mantissa, item.Exp)

	case ItemBigFloat:
		if mask&ConvBigFloat == 0 {
			return 0, ErrUnexpectedType
		}
		return bigFloatToFloat64(item.Mantissa, item.Exp), nil

	default:
		return 0, ErrUnexpectedType
	}
}

// floatToInt64 rounds f to the nearest integer, ties-to-even, per the
// conversion ladder's stated float-to-int rule, then range-checks the
// rounded value rather than the original.
func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrConversionUnderOverflow
	}
	r := math.RoundToEven(f)
	if r < math.MinInt64 || r >= 1<<63 {
		return 0, ErrConversionUnderOverflow
	}
	return int64(r), nil
}

// scaledToInt64 computes mantissa*base**exp (exp>=0) or the exact
// quotient mantissa/base**(-exp) (exp<0), failing if the division is
// inexact or the result does not fit in an int64. A zero mantissa is
// always zero, regardless of how large the exponent is.
func scaledToInt64(mant *bignumValue, exp int64, base int64) (int64, error) {
	m := bignumToBigInt(mant)
	if m.Sign() == 0 {
		return 0, nil
	}

	scaled, err := scaleBigInt(m, exp, base)
	if err != nil {
		return 0, err
	}
	if !scaled.IsInt64() {
		return 0, ErrConversionUnderOverflow
	}
	return scaled.Int64(), nil
}

func scaledToUint64(mant *bignumValue, exp int64, base int64) (uint64, error) {
	m := bignumToBigInt(mant)
	if m.Sign() < 0 {
		return 0, ErrNumberSignConversion
	}
	if m.Sign() == 0 {
		return 0, nil
	}

	scaled, err := scaleBigInt(m, exp, base)
	if err != nil {
		return 0, err
	}
	if !scaled.IsUint64() {
		return 0, ErrConversionUnderOverflow
	}
	return scaled.Uint64(), nil
}

func scaleBigInt(m *big.Int, exp int64, base int64) (*big.Int, error) {
	if exp >= 0 {
		pow := new(big.Int).Exp(big.NewInt(base), big.NewInt(exp), nil)
		return new(big.Int).Mul(m, pow), nil
	}

	pow := new(big.Int).Exp(big.NewInt(base), big.NewInt(-exp), nil)
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(m, pow, r)
	if r.Sign() != 0 {
		// |true value| < 1 when q is zero, or simply not integral
		// otherwise: both are reported the same way.
		return nil, ErrConversionUnderOverflow
	}
	return q, nil
}

// decimalFractionToFloat64 evaluates mantissa*10**exponent using
// cockroachdb/apd's base-10 decimal arithmetic, so the widening to
// float64 rounds the same way a base-10 literal with that exponent would.
func decimalFractionToFloat64(mant *bignumValue, exp int64) (float64, error) {
	coeff := bignumToBigInt(mant)
	dec := apd.NewWithBigInt((*apd.BigInt)(coeff), int32(exp))
	f, err := dec.Float64()
	if err != nil {
		return 0, ErrConversionUnderOverflow
	}
	return f, nil
}

// bigFloatToFloat64 evaluates mantissa*2**exponent using math/big's
// binary floating point, the exact base for a CBOR bigfloat.
func bigFloatToFloat64(mant *bignumValue, exp int64) float64 {
	base := new(big.Float).SetInt(bignumToBigInt(mant))
	scaled := new(big.Float).SetMantExp(base, int(exp))
	f, _ := scaled.Float64()
	return f
}
