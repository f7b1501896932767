package hex

import (
	"bytes"
	"testing"

	"lukechampine.com/frand"
)

func TestAppendRoundTrip(t *testing.T) {
	for _i := 0; _i < 100; _i++ {
		src := frand.Bytes(frand.Intn(64) + 1)
		enc := EncAppend(nil, src)
		if string(enc) != Enc(src) {
			t.Fatalf("xhex and stdlib disagree: %s %s", enc, Enc(src))
		}
		dec, err := DecAppend([]byte("prefix"), enc)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(dec[6:], src) || string(dec[:6]) != "prefix" {
			t.Fatalf("decode mismatch")
		}
	}
}

func TestIsLower(t *testing.T) {
	if !IsLower("0123456789abcdef") {
		t.Fatal("lower hex rejected")
	}
	if IsLower("ABCDEF") || IsLower("xyz") {
		t.Fatal("non lower hex accepted")
	}
	if _, err := DecAppend(nil, []byte("abc")); err == nil {
		t.Fatal("odd length decoded")
	}
}
