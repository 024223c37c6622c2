package cbor

import (
	"math/big"
	"testing"
	"time"
)

func TestGetInt64UInt64Text(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteUint64(7) })
	d := NewDecoder(data)
	v, err := d.GetInt64()
	if err != nil {
		t.Fatalf("GetInt64 failed: %v", err)
	}
	if v != 7 {
		t.Errorf("got %d, want 7", v)
	}

	data = encodeFixture(t, func(w *CborWriter) { w.WriteUint64(9) })
	d = NewDecoder(data)
	uv, err := d.GetUInt64()
	if err != nil {
		t.Fatalf("GetUInt64 failed: %v", err)
	}
	if uv != 9 {
		t.Errorf("got %d, want 9", uv)
	}

	data = encodeFixture(t, func(w *CborWriter) { w.WriteTextString("spiffy") })
	d = NewDecoder(data)
	s, err := d.GetText()
	if err != nil {
		t.Fatalf("GetText failed: %v", err)
	}
	if s != "spiffy" {
		t.Errorf("got %q, want \"spiffy\"", s)
	}

	data = encodeFixture(t, func(w *CborWriter) { w.WriteByteString([]byte("xyz")) })
	d = NewDecoder(data)
	b, err := d.GetBytes()
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if string(b) != "xyz" {
		t.Errorf("got %q, want \"xyz\"", b)
	}
}

func TestGetInt64WrongKind(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteTextString("not a number") })
	d := NewDecoder(data)
	if _, err := d.GetInt64(); err == nil {
		t.Fatalf("expected type mismatch")
	}
}

func TestGetIntConvertFromFloat(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteFloat64(42.0) })
	d := NewDecoder(data)
	v, err := d.GetInt64Convert(ConvFloat)
	if err != nil {
		t.Fatalf("GetInt64Convert failed: %v", err)
	}
	if v != 42 {
		t.Errorf("got %d, want 42", v)
	}
}

func TestGetIntConvertFromFloatNonIntegralRounds(t *testing.T) {
	// 42.5 ties to the even neighbor, 42.
	data := encodeFixture(t, func(w *CborWriter) { w.WriteFloat64(42.5) })
	d := NewDecoder(data)
	v, err := d.GetInt64Convert(ConvFloat)
	if err != nil {
		t.Fatalf("GetInt64Convert failed: %v", err)
	}
	if v != 42 {
		t.Errorf("got %d, want 42", v)
	}
}

func TestGetIntConvertMaskDenied(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteFloat64(42.0) })
	d := NewDecoder(data)
	if _, err := d.GetInt64Convert(ConvBigNum); err == nil {
		t.Fatalf("expected mask to deny float-to-int conversion")
	}
}

func TestGetUInt64ConvertSignRejected(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteInt64(-5) })
	d := NewDecoder(data)
	if _, err := d.GetUInt64Convert(ConvInt64); err == nil {
		t.Fatalf("expected sign-conversion error for negative source")
	}
}

func TestGetBool(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteBoolean(false) })
	d := NewDecoder(data)
	b, err := d.GetBool()
	if err != nil {
		t.Fatalf("GetBool failed: %v", err)
	}
	if b {
		t.Errorf("got true, want false")
	}
}

func TestGetDateString(t *testing.T) {
	when := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	data := encodeFixture(t, func(w *CborWriter) { w.WriteDateTimeString(when) })
	d := NewDecoder(data)
	s, err := d.GetDateString(MatchTag)
	if err != nil {
		t.Fatalf("GetDateString failed: %v", err)
	}
	if s != when.Format(time.RFC3339Nano) {
		t.Errorf("got %q, want %q", s, when.Format(time.RFC3339Nano))
	}
}

// TestGetDateStringTagRequirement exercises the MATCH_TAG vs
// MATCH_CONTENT_TYPE distinction: a bare RFC 3339 string with no tag 0
// must be rejected under MatchTag but accepted under MatchContentType.
func TestGetDateStringTagRequirement(t *testing.T) {
	const want = "2024-01-02T00:00:00Z"
	data := encodeFixture(t, func(w *CborWriter) { w.WriteTextString(want) })

	d := NewDecoder(data)
	if _, err := d.GetDateString(MatchTag); err == nil {
		t.Fatalf("expected MatchTag to reject an untagged date string")
	}

	d = NewDecoder(data)
	s, err := d.GetDateString(MatchContentType)
	if err != nil {
		t.Fatalf("expected MatchContentType to accept a bare text string: %v", err)
	}
	if s != want {
		t.Errorf("got %q, want %q", s, want)
	}
}

func TestGetEpochDateInt(t *testing.T) {
	when := time.Unix(1000, 0)
	data := encodeFixture(t, func(w *CborWriter) { w.WriteUnixTime(when) })
	d := NewDecoder(data)
	v, err := d.GetEpochDate()
	if err != nil {
		t.Fatalf("GetEpochDate failed: %v", err)
	}
	if v != 1000 {
		t.Errorf("got %v, want 1000", v)
	}
}

func TestGetBignum(t *testing.T) {
	big1 := new(big.Int)
	big1.SetString("123456789012345678901234567890", 10)
	data := encodeFixture(t, func(w *CborWriter) { w.WriteBigInt(big1) })
	d := NewDecoder(data)
	neg, mag, err := d.GetBignum()
	if err != nil {
		t.Fatalf("GetBignum failed: %v", err)
	}
	if neg {
		t.Errorf("expected non-negative bignum")
	}
	got := new(big.Int).SetBytes(mag)
	if got.Cmp(big1) != 0 {
		t.Errorf("got %v, want %v", got, big1)
	}
}

func TestGetURITags(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteUri("https://example.com") })
	d := NewDecoder(data)
	s, err := d.GetURI(MatchTag)
	if err != nil {
		t.Fatalf("GetURI failed: %v", err)
	}
	if s != "https://example.com" {
		t.Errorf("got %q", s)
	}
}

func TestGetURITagRequirement(t *testing.T) {
	const want = "https://example.com"
	data := encodeFixture(t, func(w *CborWriter) { w.WriteTextString(want) })

	d := NewDecoder(data)
	if _, err := d.GetURI(MatchTag); err == nil {
		t.Fatalf("expected MatchTag to reject an untagged text string")
	}

	d = NewDecoder(data)
	s, err := d.GetURI(MatchContentType)
	if err != nil {
		t.Fatalf("expected MatchContentType to accept a bare text string: %v", err)
	}
	if s != want {
		t.Errorf("got %q, want %q", s, want)
	}
}
