package cbor

import "fmt"

// MapSearchRequest designates one label a bulk map search should look for,
// with an optional Kind filter (ItemAny accepts the entry regardless of its
// content type). GetItemsInMap/GetItemsInMapWithCallback take a
// caller-built slice of these, one per field the caller wants pulled out of
// the map in a single traversal.
type MapSearchRequest struct {
	Label Label
	Kind  ItemKind
}

// ItemCallback is invoked during GetItemsInMapWithCallback once per int- or
// text-labeled entry whose label is not in the request list. Returning an
// error aborts the scan; the decoder's sticky error becomes ErrCallbackFail
// wrapping that error.
type ItemCallback func(label Label, item *Item) error

// mapEntryLoc is scanCurrentMap's bookkeeping for one entry: enough to
// jump straight back to the value without re-reading everything before
// it, used by both the label-lookup getters and the Enter*FromMap family.
type mapEntryLoc struct {
	label       Label
	kind        ItemKind
	valueOffset int
	valueFrame  readerNestingInfo
}

// scanCurrentMap performs a full, non-destructive pass over the entries
// of the map region currently on top of the stack, starting from the
// map's first entry whatever the cursor position: it restores the reader
// to exactly where it found it before returning. Duplicate int/text labels
// are reported as ErrDuplicateLabel, satisfying the map's duplicate-key
// invariant independent of which entry a caller eventually asks for.
func (d *Decoder) scanCurrentMap() ([]mapEntryLoc, error) {
	startOffset := d.r.CurrentOffset()
	startFrame := *d.topReaderFrame()
	defer func() {
		d.r.offset = startOffset
		*d.topReaderFrame() = startFrame
		d.r.invalidateState()
	}()

	f := d.stack.top()
	d.r.offset = f.mapStartOffset
	*d.topReaderFrame() = readerNestingInfo{
		majorType:      MajorTypeMap,
		isMap:          true,
		definiteLength: f.mapDefiniteLength,
		isIndefinite:   f.mapIndefinite,
	}
	d.r.invalidateState()

	var entries []mapEntryLoc
	seen := make(map[Label]bool)

	for {
		state, err := d.r.PeekState()
		if err != nil {
			return nil, d.fail(err)
		}
		if state == StateEndMap {
			break
		}

		lbl, err := d.scanLabel()
		if err != nil {
			return nil, d.fail(err)
		}

		valueOffset := d.r.CurrentOffset()
		valueFrame := *d.topReaderFrame()

		kind, err := d.peekValueKindAndSkip()
		if err != nil {
			return nil, d.fail(err)
		}

		if lbl.Kind != LabelNone {
			if seen[lbl] {
				return nil, d.fail(ErrDuplicateLabel)
			}
			seen[lbl] = true
		}

		entries = append(entries, mapEntryLoc{
			label:       lbl,
			kind:        kind,
			valueOffset: valueOffset,
			valueFrame:  valueFrame,
		})
	}

	return entries, nil
}

// scanLabel reads a map key for scanning purposes only: non-int/text keys
// are consumed and reported as LabelNone, exactly like readLabel.
func (d *Decoder) scanLabel() (Label, error) {
	state, err := d.r.PeekState()
	if err != nil {
		return Label{}, err
	}
	switch state {
	case StateUnsignedInteger:
		v, err := d.r.ReadUint64()
		if err != nil {
			return Label{}, err
		}
		return IntLabel(int64(v)), nil
	case StateNegativeInteger:
		v, err := d.r.ReadInt64()
		if err != nil {
			return Label{}, err
		}
		return IntLabel(v), nil
	case StateTextString, StateStartIndefiniteLengthTextString:
		s, err := d.r.ReadTextString()
		if err != nil {
			return Label{}, err
		}
		return TextLabel(s), nil
	default:
		if err := d.r.SkipValue(); err != nil {
			return Label{}, err
		}
		return Label{}, nil
	}
}

// peekValueKindAndSkip consumes one full value (tags and all, including
// descending into and past nested containers) and reports its shallow
// Kind, without materializing scalars into an Item.
func (d *Decoder) peekValueKindAndSkip() (ItemKind, error) {
	for {
		state, err := d.r.PeekState()
		if err != nil {
			return ItemNone, err
		}
		if state != StateTag {
			break
		}
		if _, err := d.r.ReadTag(); err != nil {
			return ItemNone, err
		}
	}

	state, err := d.r.PeekState()
	if err != nil {
		return ItemNone, err
	}

	switch state {
	case StateUnsignedInteger:
		_, err = d.r.ReadUint64()
		return ItemUint64, err
	case StateNegativeInteger:
		_, err = d.r.ReadBigInt()
		return ItemInt64, err
	case StateByteString, StateStartIndefiniteLengthByteString:
		_, err = d.r.ReadByteString()
		return ItemByteString, err
	case StateTextString, StateStartIndefiniteLengthTextString:
		_, err = d.r.ReadTextString()
		return ItemTextString, err
	case StateStartArray:
		if _, err := d.r.ReadStartArray(); err != nil {
			return ItemNone, err
		}
		for {
			st, err := d.r.PeekState()
			if err != nil {
				return ItemNone, err
			}
			if st == StateEndArray {
				break
			}
			if err := d.r.SkipValue(); err != nil {
				return ItemNone, err
			}
		}
		return ItemArray, d.r.ReadEndArray()
	case StateStartMap:
		if _, err := d.r.ReadStartMap(); err != nil {
			return ItemNone, err
		}
		for {
			st, err := d.r.PeekState()
			if err != nil {
				return ItemNone, err
			}
			if st == StateEndMap {
				break
			}
			if err := d.r.SkipValue(); err != nil {
				return ItemNone, err
			}
			if err := d.r.SkipValue(); err != nil {
				return ItemNone, err
			}
		}
		return ItemMap, d.r.ReadEndMap()
	case StateBoolean:
		_, err = d.r.ReadBoolean()
		return ItemBool, err
	case StateNull:
		return ItemNull, d.r.ReadNull()
	case StateUndefinedValue:
		return ItemUndefined, d.r.ReadUndefined()
	case StateSimpleValue:
		_, err = d.r.ReadSimpleValue()
		return ItemSimple, err
	case StateHalfPrecisionFloat:
		_, err = d.r.ReadFloat16()
		return ItemFloat16, err
	case StateSinglePrecisionFloat:
		_, err = d.r.ReadFloat32()
		return ItemFloat32, err
	case StateDoublePrecisionFloat:
		_, err = d.r.ReadFloat64()
		return ItemFloat64, err
	default:
		return ItemNone, ErrInvalidCbor
	}
}

func (d *Decoder) locateMapEntry(label Label) (*mapEntryLoc, error) {
	if d.stack.top().kind != regionMap {
		return nil, d.fail(ErrMapNotEntered)
	}
	entries, err := d.scanCurrentMap()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if labelsEqual(entries[i].label, label) {
			return &entries[i], nil
		}
	}
	return nil, d.fail(ErrLabelNotFound)
}

func (d *Decoder) jumpToEntry(e *mapEntryLoc) {
	d.r.offset = e.valueOffset
	*d.topReaderFrame() = e.valueFrame
	d.r.invalidateState()
}

// EnterMapFromMapN finds the entry with the given integer label in the
// currently entered map and enters it as a nested map region. Unlike
// GetItemInMapN, this repositions the cursor: exiting the nested map
// returns to the containing map but not to the original sequential
// position, matching RewindMap's purpose of resetting that.
func (d *Decoder) EnterMapFromMapN(label int64) (*Item, error) {
	return d.enterFromMapByLabel(IntLabel(label), regionMap)
}

// EnterMapFromMapSZ is EnterMapFromMapN with a text label.
func (d *Decoder) EnterMapFromMapSZ(label string) (*Item, error) {
	return d.enterFromMapByLabel(TextLabel(label), regionMap)
}

// EnterArrayFromMapN finds the entry with the given integer label and
// enters it as a nested array region.
func (d *Decoder) EnterArrayFromMapN(label int64) (*Item, error) {
	return d.enterFromMapByLabel(IntLabel(label), regionArray)
}

// EnterArrayFromMapSZ is EnterArrayFromMapN with a text label.
func (d *Decoder) EnterArrayFromMapSZ(label string) (*Item, error) {
	return d.enterFromMapByLabel(TextLabel(label), regionArray)
}

func (d *Decoder) enterFromMapByLabel(label Label, want regionKind) (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	e, err := d.locateMapEntry(label)
	if err != nil {
		return nil, err
	}
	d.jumpToEntry(e)
	return d.enterRegionAt(want, e.label)
}

// GetItemInMapN fetches the fully tag-interpreted item for the given
// integer label, without disturbing the cursor's sequential position: a
// subsequent GetNextRaw continues exactly where it would have otherwise.
// kind filters the result by content type; pass ItemAny to accept whatever
// is found. A kind mismatch fails with ErrUnexpectedType, same as any
// other typed getter.
func (d *Decoder) GetItemInMapN(label int64, kind ItemKind) (*Item, error) {
	return d.getItemByLabel(IntLabel(label), kind)
}

// GetItemInMapSZ is GetItemInMapN with a text label.
func (d *Decoder) GetItemInMapSZ(label string, kind ItemKind) (*Item, error) {
	return d.getItemByLabel(TextLabel(label), kind)
}

func (d *Decoder) getItemByLabel(label Label, kind ItemKind) (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	e, err := d.locateMapEntry(label)
	if err != nil {
		return nil, err
	}

	savedOffset, savedFrame := d.r.CurrentOffset(), *d.topReaderFrame()
	d.jumpToEntry(e)
	item, ferr := d.decodeTaggedValue()
	d.r.offset = savedOffset
	*d.topReaderFrame() = savedFrame
	d.r.invalidateState()

	if ferr != nil {
		return nil, ferr
	}
	if kind != ItemAny && item.Kind != kind {
		return nil, d.fail(ErrUnexpectedType)
	}
	item.HasLabel = true
	item.Label = e.label
	return item, nil
}

// GetItemsInMap performs one traversal of the currently entered map and
// fills a result slot for each entry of requests whose label is found,
// leaving the cursor's sequential position untouched. The returned slice
// is parallel to requests: a slot is nil when its label is absent. A
// found entry whose Kind does not match a non-ItemAny request fails with
// ErrUnexpectedType.
func (d *Decoder) GetItemsInMap(requests []MapSearchRequest) ([]*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.stack.top().kind != regionMap {
		return nil, d.fail(ErrMapNotEntered)
	}

	entries, err := d.scanCurrentMap()
	if err != nil {
		return nil, err
	}

	savedOffset, savedFrame := d.r.CurrentOffset(), *d.topReaderFrame()
	defer func() {
		d.r.offset = savedOffset
		*d.topReaderFrame() = savedFrame
		d.r.invalidateState()
	}()

	results := make([]*Item, len(requests))
	for i, req := range requests {
		e := findMapEntry(entries, req.Label)
		if e == nil {
			continue
		}
		if req.Kind != ItemAny && e.kind != req.Kind {
			return nil, d.fail(ErrUnexpectedType)
		}
		d.jumpToEntry(e)
		item, err := d.decodeTaggedValue()
		if err != nil {
			return nil, err
		}
		item.HasLabel = true
		item.Label = e.label
		results[i] = item
	}
	return results, nil
}

// GetItemsInMapWithCallback is GetItemsInMap plus cb: every int- or
// text-labeled entry whose label does not appear in requests is also fully
// tag-interpreted and handed to cb, in map order, instead of being silently
// skipped. Entries with any other key type are not passed to cb. This
// lets a caller pull out its known fields by label while still observing
// whatever else the map carries.
func (d *Decoder) GetItemsInMapWithCallback(requests []MapSearchRequest, cb ItemCallback) ([]*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.stack.top().kind != regionMap {
		return nil, d.fail(ErrMapNotEntered)
	}

	entries, err := d.scanCurrentMap()
	if err != nil {
		return nil, err
	}

	savedOffset, savedFrame := d.r.CurrentOffset(), *d.topReaderFrame()
	defer func() {
		d.r.offset = savedOffset
		*d.topReaderFrame() = savedFrame
		d.r.invalidateState()
	}()

	results := make([]*Item, len(requests))
	for i := range entries {
		e := &entries[i]
		if e.label.Kind == LabelNone {
			continue
		}

		reqIdx := -1
		for ri, req := range requests {
			if labelsEqual(req.Label, e.label) {
				reqIdx = ri
				break
			}
		}

		d.jumpToEntry(e)
		item, err := d.decodeTaggedValue()
		if err != nil {
			return nil, err
		}
		item.HasLabel = true
		item.Label = e.label

		if reqIdx < 0 {
			if err := cb(e.label, item); err != nil {
				return nil, d.fail(fmt.Errorf("%w: %w", ErrCallbackFail, err))
			}
			continue
		}
		if requests[reqIdx].Kind != ItemAny && e.kind != requests[reqIdx].Kind {
			return nil, d.fail(ErrUnexpectedType)
		}
		results[reqIdx] = item
	}
	return results, nil
}

func findMapEntry(entries []mapEntryLoc, label Label) *mapEntryLoc {
	for i := range entries {
		if labelsEqual(entries[i].label, label) {
			return &entries[i]
		}
	}
	return nil
}
