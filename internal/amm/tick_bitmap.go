// tick_bitmap.go - Word-indexed bitmap of initialized ticks.
//
// Ticks are compressed by tick spacing and packed 256 per word. The bitmap
// lets the swap loop jump to the next initialized tick in one word instead of
// scanning tick by tick.

package amm

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// TickBitmap marks initialized compressed-tick positions.
type TickBitmap struct {
	words map[int16]*uint256.Int
}

// NewTickBitmap creates an empty bitmap.
func NewTickBitmap() *TickBitmap {
	return &TickBitmap{words: make(map[int16]*uint256.Int)}
}

// bitmapPosition splits a compressed tick into word and bit coordinates.
// Integer division must floor toward negative infinity.
func bitmapPosition(compressed int) (wordPos int16, bitPos uint) {
	word := compressed >> 8
	bit := compressed & 255
	return int16(word), uint(bit)
}

// compress maps a tick to its compressed coordinate, flooring toward
// negative infinity.
func compress(tick, tickSpacing int) int {
	c := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		c--
	}
	return c
}

// Flip toggles the initialized bit for tick. The tick must be a multiple of
// tickSpacing.
func (b *TickBitmap) Flip(tick, tickSpacing int) {
	if tick%tickSpacing != 0 {
		panic("amm: flipping unspaced tick")
	}
	wordPos, bitPos := bitmapPosition(tick / tickSpacing)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
	word, ok := b.words[wordPos]
	if !ok {
		word = new(uint256.Int)
		b.words[wordPos] = word
	}
	word.Xor(word, mask)
	if word.IsZero() {
		delete(b.words, wordPos)
	}
}

// IsSet reports whether the tick's bit is set.
func (b *TickBitmap) IsSet(tick, tickSpacing int) bool {
	if tick%tickSpacing != 0 {
		return false
	}
	wordPos, bitPos := bitmapPosition(tick / tickSpacing)
	word, ok := b.words[wordPos]
	if !ok {
		return false
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
	return !new(uint256.Int).And(word, mask).IsZero()
}

// lsb returns the index of the least significant set bit. The word must be
// non-zero.
func lsb(word *uint256.Int) uint {
	for i := 0; i < 4; i++ {
		if word[i] != 0 {
			return uint(i*64 + bits.TrailingZeros64(word[i]))
		}
	}
	panic("amm: lsb of zero word")
}

// msb returns the index of the most significant set bit. The word must be
// non-zero.
func msb(word *uint256.Int) uint {
	return uint(word.BitLen() - 1)
}

// NextInitializedTickWithinOneWord returns the next initialized tick in the
// trade direction within the same bitmap word, or the word boundary when the
// word holds no candidate. lte is true when searching toward lower ticks
// (zeroForOne). The second result reports whether the returned tick is
// initialized.
func (b *TickBitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int, lte bool) (int, bool) {
	compressed := compress(tick, tickSpacing)

	if lte {
		wordPos, bitPos := bitmapPosition(compressed)
		// Mask of bits at or below bitPos.
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
		mask.Or(mask, new(uint256.Int).Sub(mask, uint256.NewInt(1)))
		if word, ok := b.words[wordPos]; ok {
			masked := new(uint256.Int).And(word, mask)
			if !masked.IsZero() {
				next := (compressed - int(bitPos-msb(masked))) * tickSpacing
				return next, true
			}
		}
		return (compressed - int(bitPos)) * tickSpacing, false
	}

	// Searching upward starts one past the current tick.
	wordPos, bitPos := bitmapPosition(compressed + 1)
	// Mask of bits at or above bitPos.
	low := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
	low.Sub(low, uint256.NewInt(1))
	mask := new(uint256.Int).Not(low)
	if word, ok := b.words[wordPos]; ok {
		masked := new(uint256.Int).And(word, mask)
		if !masked.IsZero() {
			next := (compressed + 1 + int(lsb(masked)-bitPos)) * tickSpacing
			return next, true
		}
	}
	return (compressed + 1 + int(255-bitPos)) * tickSpacing, false
}
