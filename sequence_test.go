package cbor

import "testing"

func TestDecodeSequence(t *testing.T) {
	var data []byte
	data = append(data, encodeFixture(t, func(w *CborWriter) { w.WriteUint64(1) })...)
	data = append(data, encodeFixture(t, func(w *CborWriter) { w.WriteTextString("two") })...)
	data = append(data, encodeFixture(t, func(w *CborWriter) { w.WriteBoolean(true) })...)

	items, err := DecodeSequence(data)
	if err != nil {
		t.Fatalf("DecodeSequence failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Uint != 1 {
		t.Errorf("item 0: got %d, want 1", items[0].Uint)
	}
	if items[1].Text != "two" {
		t.Errorf("item 1: got %q, want \"two\"", items[1].Text)
	}
	if !items[2].Bool {
		t.Errorf("item 2: got false, want true")
	}
}

func TestDecodeSequenceEmpty(t *testing.T) {
	items, err := DecodeSequence(nil)
	if err != nil {
		t.Fatalf("DecodeSequence failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}
