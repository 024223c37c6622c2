package cbor

// TagRequirement controls how a typed getter's expected tag and expected
// ItemKind are reconciled against what is actually at the cursor, mirroring
// QCBOR's QCBOR_TAG_REQUIREMENT_* family.
type TagRequirement int

const (
	// MatchTag requires the exact tag number to be present.
	MatchTag TagRequirement = iota
	// MatchContentType ignores the tag and accepts any item whose decoded
	// Kind already matches, whether or not a tag produced it.
	MatchContentType
	// MatchEither accepts either the tag or the content kind.
	MatchEither
)

// TagSpec pairs the tag a getter looks for with the ItemKind(s) that tag
// is allowed to produce or that may already describe the item's content.
type TagSpec struct {
	Tag          CborTag
	Requirement  TagRequirement
	ContentKinds []ItemKind
}

func (t TagSpec) containsKind(k ItemKind) bool {
	for _, ck := range t.ContentKinds {
		if ck == k {
			return true
		}
	}
	return false
}

// matches reports whether item satisfies t, given the tags actually seen
// on the item (outermost first) and the item's decoded Kind.
func (t TagSpec) matches(tags []CborTag, kind ItemKind) bool {
	hasTag := false
	for _, tg := range tags {
		if tg == t.Tag {
			hasTag = true
			break
		}
	}
	hasContent := t.containsKind(kind)

	switch t.Requirement {
	case MatchTag:
		return hasTag
	case MatchContentType:
		return hasContent
	case MatchEither:
		return hasTag || hasContent
	default:
		return false
	}
}
