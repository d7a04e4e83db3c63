// tick_math.go - Tick <-> sqrt price conversion.
//
// Prices are square roots in Q64.96 fixed point: sqrtPrice = sqrt(1.0001^tick) * 2^96.
// SqrtRatioAtTick uses the precomputed sqrt(1.0001^(2^i)) ladder in Q128;
// TickAtSqrtRatio inverts it by binary search, which is exact because
// SqrtRatioAtTick is monotonic.

package amm

import "math/big"

// MinTick and MaxTick bound the usable tick range; MaxTick is the maximum
// representable tick magnitude used by the wire offset encoding.
const (
	MinTick = -887272
	MaxTick = 887272
)

var (
	// Q96 and Q128 are the fixed-point scaling factors.
	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// MinSqrtRatio is SqrtRatioAtTick(MinTick); MaxSqrtRatio is
	// SqrtRatioAtTick(MaxTick). A pool price always sits in (Min, Max].
	MinSqrtRatio    = big.NewInt(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// tickRatios[i] is sqrt(1.0001)^(-2^i) in Q128, the multiplier ladder for
// SqrtRatioAtTick.
var tickRatios [20]*big.Int

func init() {
	ladder := []string{
		"fffcb933bd6fad37aa2d162d1a594001",
		"fff97272373d413259a46990580e213a",
		"fff2e50f5f656932ef12357cf3c7fdcc",
		"ffe5caca7e10e4e61c3624eaa0941cd0",
		"ffcb9843d60f6159c9db58835c926644",
		"ff973b41fa98c081472e6896dfb254c0",
		"ff2ea16466c96a3843ec78b326b52861",
		"fe5dee046a99a2a811c461f1969c3053",
		"fcbe86c7900a88aedcffc83b479aa3a4",
		"f987a7253ac413176f2b074cf7815e54",
		"f3392b0822b70005940c7a398e4b70f3",
		"e7159475a2c29b7443b29c7fa6e889d9",
		"d097f3bdfd2022b8845ad8f792aa5825",
		"a9f746462d870fdf8a65dc1f90e061e5",
		"70d869a156d2a1b890bb3df62baf32f7",
		"31be135f97d08fd981231505542fcfa6",
		"9aa508b5b7a84e1c677de54f3e99bc9",
		"5d6af8dedb81196699c329225ee604",
		"2216e584f5fa1ea926041bedfe98",
		"48a170391f7dc42444e8fa2",
	}
	for i, s := range ladder {
		v, ok := new(big.Int).SetString(s, 16)
		if !ok {
			panic("amm: bad tick ratio constant")
		}
		tickRatios[i] = v
	}
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96. Fails with
// ErrInvalidTickRange outside [MinTick, MaxTick].
func SqrtRatioAtTick(tick int) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrInvalidTickRange
	}
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(big.Int).Set(Q128)
	if absTick&1 != 0 {
		ratio.Set(tickRatios[0])
	}
	for i := 1; i < len(tickRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, tickRatios[i])
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the result round-trips through
	// TickAtSqrtRatio.
	out := new(big.Int).Rsh(ratio, 32)
	rem := new(big.Int).And(ratio, big.NewInt(0xffffffff))
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out, nil
}

// TickAtSqrtRatio returns the largest tick whose sqrt ratio is <= sqrtPrice:
// tick = floor(log_1.0001(sqrtPrice^2)). Binary search over the monotonic
// SqrtRatioAtTick.
func TickAtSqrtRatio(sqrtPrice *big.Int) (int, error) {
	if sqrtPrice.Cmp(MinSqrtRatio) < 0 || sqrtPrice.Cmp(MaxSqrtRatio) > 0 {
		return 0, ErrInvalidSqrtPrice
	}
	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		r, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if r.Cmp(sqrtPrice) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
