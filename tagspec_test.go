package cbor

import "testing"

func TestTagSpecMatches(t *testing.T) {
	spec := TagSpec{Tag: TagURI, Requirement: MatchTag, ContentKinds: []ItemKind{ItemTextString}}

	tests := []struct {
		name string
		tags []CborTag
		kind ItemKind
		want bool
	}{
		{"has_tag", []CborTag{TagURI}, ItemURI, true},
		{"missing_tag", nil, ItemTextString, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spec.matches(tt.tags, tt.kind); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTagSpecMatchContentType(t *testing.T) {
	spec := TagSpec{Requirement: MatchContentType, ContentKinds: []ItemKind{ItemTextString, ItemByteString}}

	if !spec.matches(nil, ItemTextString) {
		t.Errorf("expected content-type match for ItemTextString")
	}
	if spec.matches(nil, ItemBool) {
		t.Errorf("expected no content-type match for ItemBool")
	}
}

func TestTagSpecMatchEither(t *testing.T) {
	spec := TagSpec{Tag: TagBase64, Requirement: MatchEither, ContentKinds: []ItemKind{ItemB64}}

	if !spec.matches([]CborTag{TagBase64}, ItemTextString) {
		t.Errorf("expected MatchEither to accept tag presence alone")
	}
	if !spec.matches(nil, ItemB64) {
		t.Errorf("expected MatchEither to accept content kind alone")
	}
	if spec.matches(nil, ItemTextString) {
		t.Errorf("expected MatchEither to reject neither tag nor content kind")
	}
}
