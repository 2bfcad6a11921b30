// Package bitutil provides the sign and zero extension primitives used by the
// RV32I instruction decoders and execution behaviours. Both operate on 32-bit
// words whose meaningful payload occupies the low width bits.
package bitutil

import (
	"errors"
	"fmt"
)

// ErrWidthRange is returned when a width outside 1..32 is requested. A width
// of zero has no sign bit to test.
var ErrWidthRange = errors.New("bitutil: width out of range")

// MaxWidth is the widest payload supported, which is also the register width.
const MaxWidth = 32

// upperMasks[w-1] has every bit at position >= w set, for w in 1..31.
// Width 32 needs no mask because sign extension is then the identity.
var upperMasks [MaxWidth - 1]uint32

func init() {
	for w := 1; w < MaxWidth; w++ {
		upperMasks[w-1] = ^uint32(0) << w
	}
}

func checkWidth(width uint) error {
	if width == 0 || width > MaxWidth {
		return fmt.Errorf("%w: %d", ErrWidthRange, width)
	}
	return nil
}

// SignExtend treats bit width-1 of v as the sign bit and replicates it into
// every higher bit.
func SignExtend(v uint32, width uint) (uint32, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	if width == MaxWidth {
		return v, nil
	}
	mask := upperMasks[width-1]
	if v>>(width-1)&1 == 1 {
		return v | mask, nil
	}
	return v &^ mask, nil
}

// ZeroExtend clears every bit of v at position >= width.
func ZeroExtend(v uint32, width uint) (uint32, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	if width == MaxWidth {
		return v, nil
	}
	return v &^ upperMasks[width-1], nil
}

// MustSignExtend is like SignExtend but panics on an invalid width. It is
// meant for call sites whose width is a compile-time constant.
func MustSignExtend(v uint32, width uint) uint32 {
	r, err := SignExtend(v, width)
	if err != nil {
		panic(err)
	}
	return r
}

// MustZeroExtend is like ZeroExtend but panics on an invalid width.
func MustZeroExtend(v uint32, width uint) uint32 {
	r, err := ZeroExtend(v, width)
	if err != nil {
		panic(err)
	}
	return r
}
