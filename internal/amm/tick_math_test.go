package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSqrtRatioAtTickBounds(t *testing.T) {
	minRatio, err := SqrtRatioAtTick(MinTick)
	require.NoError(t, err)
	require.Equal(t, 0, minRatio.Cmp(MinSqrtRatio), "ratio at MinTick")

	maxRatio, err := SqrtRatioAtTick(MaxTick)
	require.NoError(t, err)
	require.Equal(t, 0, maxRatio.Cmp(MaxSqrtRatio), "ratio at MaxTick")

	zero, err := SqrtRatioAtTick(0)
	require.NoError(t, err)
	require.Equal(t, 0, zero.Cmp(Q96), "ratio at tick 0 is 2^96")

	_, err = SqrtRatioAtTick(MaxTick + 1)
	require.ErrorIs(t, err, ErrInvalidTickRange)
	_, err = SqrtRatioAtTick(MinTick - 1)
	require.ErrorIs(t, err, ErrInvalidTickRange)
}

func TestSqrtRatioMonotonic(t *testing.T) {
	ticks := []int{MinTick, -887271, -100000, -60, -1, 0, 1, 60, 100000, 887271, MaxTick}
	var prev *big.Int
	for _, tick := range ticks {
		r, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)
		if prev != nil {
			require.True(t, r.Cmp(prev) > 0, "ratio must grow with tick (tick %d)", tick)
		}
		prev = r
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	for _, tick := range []int{MinTick, -123456, -60, 0, 1, 60, 777, 123456, MaxTick} {
		r, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)
		got, err := TickAtSqrtRatio(r)
		require.NoError(t, err)
		require.Equal(t, tick, got, "round trip at tick %d", tick)
	}
}

func TestTickAtSqrtRatioBetweenTicks(t *testing.T) {
	// A price strictly between tick 100 and 101 resolves to 100.
	r100, err := SqrtRatioAtTick(100)
	require.NoError(t, err)
	r101, err := SqrtRatioAtTick(101)
	require.NoError(t, err)
	mid := new(big.Int).Add(r100, r101)
	mid.Rsh(mid, 1)
	got, err := TickAtSqrtRatio(mid)
	require.NoError(t, err)
	require.Equal(t, 100, got)
}

func TestTickAtSqrtRatioRejectsOutOfRange(t *testing.T) {
	_, err := TickAtSqrtRatio(big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidSqrtPrice)
	over := new(big.Int).Add(MaxSqrtRatio, big.NewInt(1))
	_, err = TickAtSqrtRatio(over)
	require.ErrorIs(t, err, ErrInvalidSqrtPrice)
}

func TestBitmapNextInitializedTick(t *testing.T) {
	b := NewTickBitmap()
	const spacing = 60

	b.Flip(-120, spacing)
	b.Flip(180, spacing)
	require.True(t, b.IsSet(-120, spacing))
	require.True(t, b.IsSet(180, spacing))
	require.False(t, b.IsSet(0, spacing))

	// Downward search from tick 0 stops at the word boundary (tick 0 itself,
	// word 0's lowest candidate); the next word holds -120.
	next, initialized := b.NextInitializedTickWithinOneWord(0, spacing, true)
	require.False(t, initialized)
	require.Equal(t, 0, next)

	next, initialized = b.NextInitializedTickWithinOneWord(-1, spacing, true)
	require.True(t, initialized)
	require.Equal(t, -120, next)

	// Upward search from 0 finds 180.
	next, initialized = b.NextInitializedTickWithinOneWord(0, spacing, false)
	require.True(t, initialized)
	require.Equal(t, 180, next)

	// Upward search from 180 skips the current tick.
	next, initialized = b.NextInitializedTickWithinOneWord(180, spacing, false)
	require.False(t, initialized)
	require.True(t, next > 180)

	// Downward search from -121 territory excludes -120.
	next, initialized = b.NextInitializedTickWithinOneWord(-180, spacing, true)
	require.False(t, initialized)
	require.True(t, next <= -180)

	// Flipping again clears the bit.
	b.Flip(-120, spacing)
	require.False(t, b.IsSet(-120, spacing))
}
