package bitutil

import (
	"errors"
	"testing"
)

// samples covers sign bit set/clear patterns at every width plus some noise.
var samples = []uint32{
	0x00000000, 0xFFFFFFFF, 0x80000000, 0x7FFFFFFF,
	0x00000001, 0x00000800, 0x00000FFF, 0x000007FF,
	0xDEADBEEF, 0x12345678, 0x0000ABCD, 0xAAAAAAAA,
	0x55555555, 0x00100000, 0x000FFFFF, 0x74348A7E,
}

func lowMask(width uint) uint32 {
	if width == 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << width) - 1
}

func TestSignExtend_PayloadRoundTrip(t *testing.T) {
	for w := uint(1); w <= 32; w++ {
		for _, v := range samples {
			got, err := SignExtend(v, w)
			if err != nil {
				t.Fatalf("SignExtend(0x%08x, %d): %v", v, w, err)
			}
			if got&lowMask(w) != v&lowMask(w) {
				t.Fatalf("SignExtend(0x%08x, %d) payload: got 0x%08x, want 0x%08x",
					v, w, got&lowMask(w), v&lowMask(w))
			}
		}
	}
}

func TestSignExtend_UpperBits(t *testing.T) {
	for w := uint(1); w < 32; w++ {
		for _, v := range samples {
			got, _ := SignExtend(v, w)
			upper := ^lowMask(w)
			if v>>(w-1)&1 == 1 {
				if got&upper != upper {
					t.Fatalf("SignExtend(0x%08x, %d): got 0x%08x, want upper bits set", v, w, got)
				}
			} else if got&upper != 0 {
				t.Fatalf("SignExtend(0x%08x, %d): got 0x%08x, want upper bits clear", v, w, got)
			}
		}
	}
}

func TestSignExtend_Known(t *testing.T) {
	tests := []struct {
		v     uint32
		width uint
		want  uint32
	}{
		{0xFFF, 12, 0xFFFFFFFF},
		{0x800, 12, 0xFFFFF800},
		{0x7FF, 12, 0x000007FF},
		{0x1000, 13, 0xFFFFF000},
		{0x00100000, 21, 0xFFF00000},
		{0xEF, 8, 0xFFFFFFEF},
		{0x7F, 8, 0x0000007F},
		{0x8000, 16, 0xFFFF8000},
		{1, 1, 0xFFFFFFFF},
		{0x12345678, 32, 0x12345678},
	}
	for _, tt := range tests {
		got, err := SignExtend(tt.v, tt.width)
		if err != nil {
			t.Fatalf("SignExtend(0x%x, %d): %v", tt.v, tt.width, err)
		}
		if got != tt.want {
			t.Errorf("SignExtend(0x%x, %d): got 0x%08x, want 0x%08x", tt.v, tt.width, got, tt.want)
		}
	}
}

func TestZeroExtend(t *testing.T) {
	for w := uint(1); w <= 32; w++ {
		for _, v := range samples {
			got, err := ZeroExtend(v, w)
			if err != nil {
				t.Fatalf("ZeroExtend(0x%08x, %d): %v", v, w, err)
			}
			if got != v&lowMask(w) {
				t.Fatalf("ZeroExtend(0x%08x, %d): got 0x%08x, want 0x%08x", v, w, got, v&lowMask(w))
			}
		}
	}
}

func TestWidthRange(t *testing.T) {
	for _, w := range []uint{0, 33, 64} {
		if _, err := SignExtend(1, w); !errors.Is(err, ErrWidthRange) {
			t.Errorf("SignExtend width %d: got %v, want ErrWidthRange", w, err)
		}
		if _, err := ZeroExtend(1, w); !errors.Is(err, ErrWidthRange) {
			t.Errorf("ZeroExtend width %d: got %v, want ErrWidthRange", w, err)
		}
	}
}

func TestMustSignExtend_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustSignExtend(_, 0) did not panic")
		}
	}()
	MustSignExtend(1, 0)
}
