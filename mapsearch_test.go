package cbor

import "testing"

func buildPersonMap(t *testing.T) []byte {
	return encodeFixture(t, func(w *CborWriter) {
		w.WriteStartMap(3)
		w.WriteTextString("name")
		w.WriteTextString("ada")
		w.WriteTextString("age")
		w.WriteUint64(36)
		w.WriteTextString("tags")
		w.WriteStartArray(2)
		w.WriteTextString("admin")
		w.WriteTextString("staff")
		w.WriteEndArray()
		w.WriteEndMap()
	})
}

func TestGetItemInMapSZFindsEntry(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}

	item, err := d.GetItemInMapSZ("age", ItemUint64)
	if err != nil {
		t.Fatalf("GetItemInMapSZ failed: %v", err)
	}
	if item.Uint != 36 {
		t.Errorf("got %d, want 36", item.Uint)
	}

	// Position must be unaffected: sequential read still starts at "name".
	first, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	if first.Label.Text != "name" || first.Text != "ada" {
		t.Errorf("got label %q value %q, want \"name\"/\"ada\"", first.Label.Text, first.Text)
	}
}

func TestGetItemInMapSZNotFound(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}
	if _, err := d.GetItemInMapSZ("missing", ItemAny); err == nil {
		t.Fatalf("expected label-not-found error")
	}
}

func TestGetItemInMapSZKindMismatch(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}
	if _, err := d.GetItemInMapSZ("age", ItemTextString); err == nil {
		t.Fatalf("expected kind-mismatch error for a filter that doesn't match the entry")
	}
}

func TestGetItemsInMap(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}

	requests := []MapSearchRequest{
		{Label: TextLabel("name"), Kind: ItemTextString},
		{Label: TextLabel("age"), Kind: ItemUint64},
		{Label: TextLabel("missing"), Kind: ItemAny},
	}
	results, err := d.GetItemsInMap(requests)
	if err != nil {
		t.Fatalf("GetItemsInMap failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0] == nil || results[0].Text != "ada" {
		t.Errorf("got %+v, want \"ada\"", results[0])
	}
	if results[1] == nil || results[1].Uint != 36 {
		t.Errorf("got %+v, want 36", results[1])
	}
	if results[2] != nil {
		t.Errorf("expected nil slot for an absent label, got %+v", results[2])
	}

	// Position must be unaffected: sequential read still starts at "name".
	first, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	if first.Label.Text != "name" {
		t.Errorf("got label %q, want \"name\"", first.Label.Text)
	}
}

func TestGetItemsInMapKindMismatch(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}
	requests := []MapSearchRequest{{Label: TextLabel("age"), Kind: ItemTextString}}
	if _, err := d.GetItemsInMap(requests); err == nil {
		t.Fatalf("expected kind-mismatch error")
	}
}

func TestGetItemsInMapWithCallback(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}

	requests := []MapSearchRequest{{Label: TextLabel("age"), Kind: ItemUint64}}
	var unmatched []string
	results, err := d.GetItemsInMapWithCallback(requests, func(label Label, item *Item) error {
		unmatched = append(unmatched, label.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("GetItemsInMapWithCallback failed: %v", err)
	}
	if len(results) != 1 || results[0] == nil || results[0].Uint != 36 {
		t.Fatalf("got %+v, want matched result for \"age\"", results)
	}
	if len(unmatched) != 2 {
		t.Fatalf("got %d unmatched callback invocations, want 2", len(unmatched))
	}
	seen := map[string]bool{}
	for _, l := range unmatched {
		seen[l] = true
	}
	if !seen["name"] || !seen["tags"] {
		t.Errorf("expected callback on \"name\" and \"tags\", got %v", unmatched)
	}
}

func TestEnterArrayFromMapSZAndRewind(t *testing.T) {
	data := buildPersonMap(t)
	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}

	arr, err := d.EnterArrayFromMapSZ("tags")
	if err != nil {
		t.Fatalf("EnterArrayFromMapSZ failed: %v", err)
	}
	if arr.Count != 2 {
		t.Fatalf("got count %d, want 2", arr.Count)
	}
	first, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw failed: %v", err)
	}
	if first.Text != "admin" {
		t.Errorf("got %q, want \"admin\"", first.Text)
	}
	if err := d.ExitArray(); err != nil {
		t.Fatalf("ExitArray failed: %v", err)
	}

	if err := d.RewindMap(); err != nil {
		t.Fatalf("RewindMap failed: %v", err)
	}
	back, err := d.GetNextRaw()
	if err != nil {
		t.Fatalf("GetNextRaw after rewind failed: %v", err)
	}
	if back.Label.Text != "name" {
		t.Errorf("after rewind got label %q, want \"name\"", back.Label.Text)
	}
}

func TestDuplicateLabelDetected(t *testing.T) {
	data := encodeFixture(t, func(w *CborWriter) {
		w.WriteStartMap(2)
		w.WriteTextString("k")
		w.WriteUint64(1)
		w.WriteTextString("k")
		w.WriteUint64(2)
		w.WriteEndMap()
	})

	d := NewDecoder(data)
	if _, err := d.EnterMap(); err != nil {
		t.Fatalf("EnterMap failed: %v", err)
	}
	if _, err := d.GetItemInMapSZ("k", ItemAny); err == nil {
		t.Fatalf("expected duplicate-label error")
	}
}
