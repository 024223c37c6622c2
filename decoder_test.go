package cbor

import "testing"

func encodeFixture(t *testing.T, build func(w *CborWriter)) []byte {
	t.Helper()
	w := NewCborWriter()
	build(w)
	return w.Bytes()
}

func TestDecoderScalarTraversal(t *testing.T) {
	tests := []struct {
		name    string
		build   func(w *CborWriter)
		want    ItemKind
		checkFn func(t *testing.T, item *Item)
	}{
		{
			name:  "uint",
			build: func(w *CborWriter) { w.WriteUint64(42) },
			want:  ItemUint64,
			checkFn: func(t *testing.T, item *Item) {
				if item.Uint != 42 {
					t.Errorf("got %d, want 42", item.Uint)
				}
			},
		},
		{
			name:  "negative_int",
			build: func(w *CborWriter) { w.WriteInt64(-100) },
			want:  ItemInt64,
			checkFn: func(t *testing.T, item *Item) {
				if item.Int != -100 {
					t.Errorf("got %d, want -100", item.Int)
				}
			},
		},
		{
			name:  "byte_string",
			build: func(w *CborWriter) { w.WriteByteString([]byte{1, 2, 3}) },
			want:  ItemByteString,
			checkFn: func(t *testing.T, item *Item) {
				if string(item.Bytes) != "\x01\x02\x03" {
					t.Errorf("got %v", item.Bytes)
				}
			},
		},
		{
			name:  "text_string",
			build: func(w *CborWriter) { w.WriteTextString("hello") },
			want:  ItemTextString,
			checkFn: func(t *testing.T, item *Item) {
				if item.Text != "hello" {
					t.Errorf("got %q", item.Text)
				}
			},
		},
		{
			name:  "bool",
			build: func(w *CborWriter) { w.WriteBoolean(true) },
			want:  ItemBool,
			checkFn: func(t *testing.T, item *Item) {
				if !item.Bool {
					t.Errorf("got false, want true")
				}
			},
		},
		{
			name:  "null",
			build: func(w *CborWriter) { w.WriteNull() },
			want:  ItemNull,
		},
		{
			name:  "float64",
			build: func(w *CborWriter) { w.WriteFloat64(3.5) },
			want:  ItemFloat64,
			checkFn: func(t *testing.T, item *Item) {
				if item.Float != 3.5 {
					t.Errorf("got %v, want 3.5", item.Float)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeFixture(t, tt.build)
			d := NewDecoder(data)
			item, err := d.GetNextRaw()
			if err != nil {
				t.Fatalf("GetNextRaw failed: %v", err)
			}
			if item.Kind != tt.want {
				t.Fatalf("got kind %v, want %v", item.Kind, tt.want)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, item)
			}
			if err := d.Finish(); err != nil {
				t.Errorf("Finish failed: %v", err)
			}
		})
	}
}

func TestDecoderEnterExitArray(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) {
		w.WriteStartArray(3)
		w.WriteUint64(1)
		w.WriteUint64(2)
		w.WriteUint64(3)
		w.WriteEndArray()
	})

	d := NewDecoder(data)
	arr, err := d.EnterArray()
	if err != nil {
		t.Fatalf("EnterArray failed: %v", err)
	}
	if arr.Count != 3 {
		t.Fatalf("got count %d, want 3", arr.Count)
	}

	for i := int64(1); i <= 3; i++ {
		item, err := d.GetNextRaw()
		if err != nil {
			t.Fatalf("GetNextRaw failed: %v", err)
		}
		if item.Uint != uint64(i) {
			t.Errorf("element %d: got %d, want %d", i, item.Uint, i)
		}
	}

	if err := d.ExitArray(); err != nil {
		t.Fatalf("ExitArray failed: %v", err)
	}
	if err := d.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestDecoderExitArraySkipsRemainder(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) {
		w.WriteStartArray(3)
		w.WriteUint64(1)
		w.WriteUint64(2)
		w.WriteUint64(3)
		w.WriteEndArray()
	})

	d := NewDecoder(data)
	if _, err := d.EnterArray(); err != nil {
		t.Fatalf("EnterArray failed: %v", err)
	}
	if _, err := d.GetNextRaw(); err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	// Two elements remain unread; ExitArray must still succeed.
	if err := d.ExitArray(); err != nil {
		t.Fatalf("ExitArray failed: %v", err)
	}
	if err := d.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestDecoderMapLabels(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) {
		w.WriteStartMap(2)
		w.WriteTextString("name")
		w.WriteTextString("gopher")
		w.WriteUint64(7)
		w.WriteUint64(99)
		w.WriteEndMap()
	})

	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}

	first, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	if !first.HasLabel || first.Label.Kind != LabelText || first.Label.Text != "name" {
		t.Errorf("got label %+v, want text label \"name\"", first.Label)
	}
	if first.Text != "gopher" {
		t.Errorf("got value %q, want \"gopher\"", first.Text)
	}

	second, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	if !second.HasLabel || second.Label.Kind != LabelInt || second.Label.Int != 7 {
		t.Errorf("got label %+v, want int label 7", second.Label)
	}
	if second.Uint != 99 {
		t.Errorf("got value %d, want 99", second.Uint)
	}

	if err := d.ExitMap(); err != nil {
		t.Fatalf("ExitMap failed: %v", err)
	}
}

func TestDecoderRewindMap(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) {
		w.WriteStartMap(2)
		w.WriteTextString("a")
		w.WriteUint64(1)
		w.WriteTextString("b")
		w.WriteUint64(2)
		w.WriteEndMap()
	})

	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}

	v, err := d.GetItemInMapSZ("b", ItemAny)
	if err != nil {
		t.Fatalf("GetItemInMapSZ failed: %v", err)
	}
	if v.Uint != 2 {
		t.Errorf("got %d, want 2", v.Uint)
	}

	if err := d.RewindMap(); err != nil {
		t.Fatalf("RewindMap failed: %v", err)
	}

	first, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw after rewind failed: %v", err)
	}
	if first.Label.Text != "a" {
		t.Errorf("after rewind got label %q, want \"a\"", first.Label.Text)
	}
}

func TestDecoderBstrWrapped(t *testing.T) {
	inner := encodeFixture(t, func(w *CborWriter) { w.WriteUint64(123) })
	data := encodeFixture(t, func(w *CborWriter) { w.WriteByteString(inner) })

	d := NewDecoder(data)
	if _, err := d.EnterBstrWrapped(MatchContentType); err != nil {
		t.Fatalf("EnterBstrWrapped failed: %v", err)
	}
	item, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw inside wrapped region failed: %v", err)
	}
	if item.Uint != 123 {
		t.Errorf("got %d, want 123", item.Uint)
	}
	if err := d.ExitBstrWrapped(); err != nil {
		t.Fatalf("ExitBstrWrapped failed: %v", err)
	}
	if err := d.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestDecoderStickyError(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) { w.WriteTextString("oops") })

	d := NewDecoder(data)
	if _, err := d.GetBytes(); err == nil {
		t.Fatalf("expected a type mismatch error")
	}

	// The decoder is now latched; every further call must return the
	// same sticky error without touching the reader again.
	if _, err := d.GetNextRaw(); err == nil {
		t.Fatalf("expected sticky error to persist")
	}
	if err := d.Finish(); err == nil {
		t.Fatalf("expected Finish to also observe the sticky error")
	}
}

func TestEnterBstrWrappedRequiresTagUnderMatchTag(t *testing.T) {
	inner := encodeFixture(t, func(w *CborWriter) { w.WriteUint64(1) })
	data := encodeFixture(t, func(w *CborWriter) { w.WriteByteString(inner) })

	d := NewDecoder(data)
	if _, err := d.EnterBstrWrapped(MatchTag); err == nil {
		t.Fatalf("expected MatchTag to reject an untagged byte string")
	}

	d = NewDecoder(data)
	if _, err := d.EnterBstrWrapped(MatchContentType); err != nil {
		t.Fatalf("expected MatchContentType to accept an untagged byte string: %v", err)
	}
}

func TestDecoderExtraBytesRejected(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) {
		w.WriteUint64(1)
		w.WriteUint64(2)
	})

	d := NewDecoder(data)
	if _, err := d.GetNextRaw(); err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	if err := d.Finish(); err == nil {
		t.Fatalf("expected Finish to reject extra trailing bytes")
	}
}
