package bitvec

import "testing"

func TestByteVecRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0xFF, 0x1234, 0xDEADBEEF, 0xFFFFFFFF} {
		bv := NewWord(v)
		got, ok := bv.ToUint32()
		if !ok {
			t.Fatalf("NewWord(0x%X).ToUint32() reported unknown", v)
		}
		if got != v {
			t.Fatalf("round trip 0x%X got 0x%X", v, got)
		}
	}
	for _, v := range []uint8{0, 1, 0x7F, 0xFF} {
		bv := NewByte(v)
		got, ok := bv.ToUint64()
		if !ok || byte(got) != v {
			t.Fatalf("round trip byte 0x%X got %v ok=%v", v, got, ok)
		}
	}
}

func TestUnknownAbsorption(t *testing.T) {
	known := NewWord(5)
	unknown := UnknownWord()

	sum := known.Add(unknown)
	if sum.IsFullyKnown() {
		t.Fatalf("Add with unknown operand produced a fully known result: %s", sum)
	}
	// byte 0 depends on the unknown lhs/rhs byte 0, so it must be unknown too.
	if _, knownByte := sum.Byte(0); knownByte {
		t.Fatalf("byte 0 of sum should be unknown")
	}
}

func TestBitwiseAbsorbingLaws(t *testing.T) {
	unknown := UnknownWord()
	zero := NewWord(0)
	ones := NewWord(0xFFFFFFFF)

	if got := unknown.And(zero); !got.IsFullyKnown() || got.MustUint32() != 0 {
		t.Fatalf("a AND 0 should be known zero, got %s", got)
	}
	if got := unknown.Or(ones); !got.IsFullyKnown() || got.MustUint32() != 0xFFFFFFFF {
		t.Fatalf("a OR all-ones should be known all-ones, got %s", got)
	}

	known := NewWord(0x0F0F0F0F)
	if got := known.Xor(ones); got.MustUint32() != known.Not().MustUint32() {
		t.Fatalf("a XOR all-ones should equal NOT a, got %s vs %s", got, known.Not())
	}
}

func TestShiftRoundTrip(t *testing.T) {
	for amt := uint(0); amt < 32; amt++ {
		v := NewWord(0x89ABCDEF)
		native := uint32(0x89ABCDEF) << amt
		if got := v.Shl(amt).MustUint32(); got != native {
			t.Fatalf("Shl(%d) = 0x%X want 0x%X", amt, got, native)
		}
		nativeR := uint32(0x89ABCDEF) >> amt
		if got := v.Shr(amt).MustUint32(); got != nativeR {
			t.Fatalf("Shr(%d) = 0x%X want 0x%X", amt, got, nativeR)
		}
	}
	for amt := uint(32); amt < 40; amt++ {
		v := NewWord(0x89ABCDEF)
		if got := v.Shl(amt).MustUint32(); got != 0 {
			t.Fatalf("Shl(%d) out-of-range should be 0, got 0x%X", amt, got)
		}
		if got := v.Shr(amt).MustUint32(); got != 0 {
			t.Fatalf("Shr(%d) out-of-range should be 0, got 0x%X", amt, got)
		}
	}
}

func TestSarMatchesNativeArithmeticShift(t *testing.T) {
	for _, raw := range []int32{-1, -256, 12345, -12345, 0x7FFFFFFF, -0x7FFFFFFF} {
		for amt := uint(0); amt < 32; amt++ {
			v := NewWord(uint32(raw))
			want := uint32(raw >> amt)
			if got := v.Sar(amt).MustUint32(); got != want {
				t.Fatalf("Sar(%d) of %d = 0x%X want 0x%X", amt, raw, got, want)
			}
		}
	}
}

func TestSignedCompare(t *testing.T) {
	cases := []struct {
		a, b uint32
		want Ordering
	}{
		{1, 2, Less},
		{2, 1, Greater},
		{5, 5, Equal},
		{0xFFFFFFFF, 1, Less},   // -1 < 1
		{1, 0xFFFFFFFF, Greater},
	}
	for _, c := range cases {
		got := NewWord(c.a).SignedCmp(NewWord(c.b))
		if got != c.want {
			t.Fatalf("SignedCmp(%d,%d) = %v want %v", int32(c.a), int32(c.b), got, c.want)
		}
	}
}

func TestCompareUnknownDefaultsToEqual(t *testing.T) {
	if got := UnknownWord().ByteCmp(NewWord(5)); got != Equal {
		t.Fatalf("ByteCmp with unknown operand should be Equal, got %v", got)
	}
	if got := UnknownWord().SignedCmp(NewWord(5)); got != Equal {
		t.Fatalf("SignedCmp with unknown operand should be Equal, got %v", got)
	}
}
