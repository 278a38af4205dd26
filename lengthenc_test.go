package mysql

import "testing"

// TestLengthEncodedIntegerRoundTrip checks that for every width class,
// encode then decode recovers the original value using the minimum
// applicable encoding.
func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	cases := []uint64{
		0, 1, 250, 251, 252,
		0xfb, 0xfc, 0xfd, 0xfe, 0xff,
		0xffff, 0x10000,
		0xffffff, 0x1000000,
		0xffffffff, 0x100000000,
		^uint64(0),
	}

	for _, v := range cases {
		enc := appendLengthEncodedInteger(nil, v)
		got, isNull, n, err := readLengthEncodedInteger(enc)
		if err != nil {
			t.Fatalf("value %d: unexpected error: %v", v, err)
		}
		if isNull {
			t.Fatalf("value %d: unexpectedly decoded as NULL", v)
		}
		if n != len(enc) {
			t.Fatalf("value %d: consumed %d bytes, encoding is %d bytes", v, n, len(enc))
		}
		if got != v {
			t.Fatalf("value %d: round-tripped to %d", v, got)
		}
	}
}

func TestLengthEncodedIntegerMinimumWidth(t *testing.T) {
	tests := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{250, 1},
		{251, 3},
		{0xffff, 3},
		{0x10000, 4},
		{0xffffff, 4},
		{0x1000000, 9},
	}
	for _, tt := range tests {
		enc := appendLengthEncodedInteger(nil, tt.v)
		if len(enc) != tt.want {
			t.Errorf("value %d: encoded to %d bytes, want %d", tt.v, len(enc), tt.want)
		}
	}
}

// TestLengthEncodedIntegerNull checks that the NULL sentinel byte
// 0xFB is the only encoding that decodes as NULL.
func TestLengthEncodedIntegerNull(t *testing.T) {
	_, isNull, n, err := readLengthEncodedInteger([]byte{0xfb})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNull || n != 1 {
		t.Fatalf("0xfb should decode as NULL consuming 1 byte, got isNull=%v n=%d", isNull, n)
	}

	for _, v := range []uint64{0, 1, 0xfa} {
		_, isNull, _, err := readLengthEncodedInteger(appendLengthEncodedInteger(nil, v))
		if err != nil {
			t.Fatalf("value %d: unexpected error: %v", v, err)
		}
		if isNull {
			t.Fatalf("value %d incorrectly decoded as NULL", v)
		}
	}
}

func TestLengthEncodedStringRoundTrip(t *testing.T) {
	s := []byte("hello, world")
	enc := appendLengthEncodedInteger(nil, uint64(len(s)))
	enc = append(enc, s...)

	got, isNull, n, err := readLengthEncodedString(enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isNull {
		t.Fatal("unexpectedly NULL")
	}
	if n != len(enc) {
		t.Fatalf("consumed %d bytes, want %d", n, len(enc))
	}
	if string(got) != string(s) {
		t.Fatalf("got %q, want %q", got, s)
	}
}

func TestLengthEncodedStringNull(t *testing.T) {
	got, isNull, n, err := readLengthEncodedString([]byte{0xfb})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNull || got != nil || n != 1 {
		t.Fatalf("expected NULL/nil/1, got isNull=%v got=%v n=%d", isNull, got, n)
	}
}
