package cbor

import "math/big"

// Decoder is a bounded, cursor-based traversal over an already-materialized
// CBOR byte buffer. It wraps a CborReader and keeps its own stack of entered
// regions (maps, arrays, byte-string-wrapped data) on top of the reader's
// own container bookkeeping, so that Enter/Exit pairs can nest independently
// of how deep into the wire format a given region actually sits.
//
// Decoder is deliberately not safe for concurrent use, matching the
// teacher reader it wraps.
type Decoder struct {
	r     *CborReader
	stack *nestingStack
	err   *DecodeError
}

// DecodeOption configures a Decoder at construction time, mirroring the
// reader's own functional-options style.
type DecodeOption func(*decoderConfig)

type decoderConfig struct {
	conformanceMode         CborConformanceMode
	maxNestingDepth         int
	allowMultipleRootValues bool
}

// WithDecoderConformanceMode sets the conformance mode applied to the
// underlying reader.
func WithDecoderConformanceMode(mode CborConformanceMode) DecodeOption {
	return func(c *decoderConfig) { c.conformanceMode = mode }
}

// WithDecoderMaxNestingDepth bounds both the reader's container nesting
// and the decoder's own Enter/Exit region stack.
func WithDecoderMaxNestingDepth(depth int) DecodeOption {
	return func(c *decoderConfig) { c.maxNestingDepth = depth }
}

// WithDecoderAllowMultipleRootValues passes allow through to the reader's
// option of the same name. The reader does not consult that setting, so a
// Decoder reads successive top-level items with or without it, and Finish
// reports ErrExtraBytes for unread trailing bytes either way.
func WithDecoderAllowMultipleRootValues(allow bool) DecodeOption {
	return func(c *decoderConfig) { c.allowMultipleRootValues = allow }
}

// NewDecoder creates a Decoder over data. The cursor starts in the implicit
// top-level region.
func NewDecoder(data []byte, opts ...DecodeOption) *Decoder {
	cfg := decoderConfig{
		conformanceMode: ConformanceLax,
		maxNestingDepth: defaultMaxNestingDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := NewCborReader(data,
		WithReaderConformanceMode(cfg.conformanceMode),
		WithReaderMaxNestingDepth(cfg.maxNestingDepth),
		WithReaderAllowMultipleRootValues(cfg.allowMultipleRootValues),
	)

	return &Decoder{
		r:     r,
		stack: newNestingStack(cfg.maxNestingDepth),
	}
}

// Error returns the decoder's sticky error, or nil if no operation has
// failed yet. Once set, every subsequent Decoder method returns this same
// error without touching the underlying reader.
func (d *Decoder) Error() error {
	if d.err == nil {
		return nil
	}
	return d.err
}

// GetAndResetError returns the sticky error and clears it, allowing the
// caller to recover and keep decoding from the current cursor position.
// This is primarily useful after a label-not-found style error that does
// not actually corrupt the reader's byte position.
func (d *Decoder) GetAndResetError() error {
	err := d.Error()
	d.err = nil
	return err
}

func (d *Decoder) fail(err error) error {
	if d.err == nil {
		d.err = newDecodeError(err, d.r.CurrentOffset(), "")
	}
	return d.err
}

// InBoundedMode reports whether the cursor is currently inside an
// Enter'd map, array, or byte-string-wrapped region.
func (d *Decoder) InBoundedMode() bool {
	return d.stack.top().kind != regionTop
}

// Finish verifies every Enter has a matching Exit and that no
// undecoded bytes remain after the root value.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.stack.depth() > 0 {
		return d.fail(ErrUnclosedRegion)
	}
	state, err := d.r.PeekState()
	if err != nil {
		return d.fail(err)
	}
	if state != StateFinished {
		return d.fail(ErrExtraBytes)
	}
	return nil
}

func (d *Decoder) topReaderFrame() *readerNestingInfo {
	return &d.r.nestingStack[len(d.r.nestingStack)-1]
}

// checkBound reports ErrNoMoreItems when the cursor has reached the end
// of the current region (or end of input at the top level), the signal
// that callers should Exit rather than fetch another item.
func (d *Decoder) checkBound() error {
	state, err := d.r.PeekState()
	if err != nil {
		return d.fail(err)
	}
	switch state {
	case StateEndArray, StateEndMap, StateFinished:
		return d.fail(ErrNoMoreItems)
	}
	return nil
}

// readLabel consumes a map entry's key when the cursor is inside a map
// region, reporting it as a Label. Outside a map it is a no-op: hadKey is
// false and the cursor is untouched. Keys that are neither an integer nor
// a text string are consumed (so traversal keeps moving) but reported as
// an unlabeled entry, since label search is only defined over int/text
// keys.
func (d *Decoder) readLabel() (lbl Label, hadKey bool, err error) {
	if d.stack.top().kind != regionMap {
		return Label{}, false, nil
	}

	state, err := d.r.PeekState()
	if err != nil {
		return Label{}, false, err
	}

	switch state {
	case StateUnsignedInteger:
		v, err := d.r.ReadUint64()
		if err != nil {
			return Label{}, false, err
		}
		return IntLabel(int64(v)), true, nil
	case StateNegativeInteger:
		v, err := d.r.ReadInt64()
		if err != nil {
			return Label{}, false, err
		}
		return IntLabel(v), true, nil
	case StateTextString, StateStartIndefiniteLengthTextString:
		s, err := d.r.ReadTextString()
		if err != nil {
			return Label{}, false, err
		}
		return TextLabel(s), true, nil
	default:
		if err := d.r.SkipValue(); err != nil {
			return Label{}, false, err
		}
		return Label{}, true, nil
	}
}

// fetchItem decodes exactly one item at the cursor: the map label (if
// any), every stacked tag, and the tag-interpreted value. For ItemArray
// and ItemMap results only the container header is consumed; the cursor
// lands on the container's first child.
func (d *Decoder) fetchItem() (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	if err := d.checkBound(); err != nil {
		return nil, err
	}

	lbl, hadKey, err := d.readLabel()
	if err != nil {
		return nil, d.fail(err)
	}

	item, err := d.decodeTaggedValue()
	if err != nil {
		return nil, err
	}

	if hadKey && lbl.Kind != LabelNone {
		item.HasLabel = true
		item.Label = lbl
	}
	return item, nil
}

func (d *Decoder) readTagRun() ([]CborTag, error) {
	var tags []CborTag
	for {
		state, err := d.r.PeekState()
		if err != nil {
			return nil, d.fail(err)
		}
		if state != StateTag {
			return tags, nil
		}
		tag, err := d.r.ReadTag()
		if err != nil {
			return nil, d.fail(err)
		}
		tags = append(tags, tag)
		if len(tags) > MaxTagsPerItem {
			return nil, d.fail(ErrTooManyTags)
		}
	}
}

func (d *Decoder) decodeTaggedValue() (*Item, error) {
	tags, err := d.readTagRun()
	if err != nil {
		return nil, err
	}

	var innermost CborTag
	hasInnermost := len(tags) > 0
	if hasInnermost {
		innermost = tags[len(tags)-1]
	}

	if hasInnermost && (innermost == TagDecimalFraction || innermost == TagBigFloat) {
		item, err := d.decodeExpMantissa(innermost)
		if err != nil {
			return nil, err
		}
		item.Tags = tags
		return item, nil
	}

	item, err := d.decodeBaseValue()
	if err != nil {
		return nil, err
	}
	item.Tags = tags

	if hasInnermost {
		if kind, ok := contentDefiningTags[innermost]; ok {
			if err := d.applyContentTag(innermost, kind, item); err != nil {
				return nil, err
			}
		}
	}
	return item, nil
}

func (d *Decoder) applyContentTag(tag CborTag, kind ItemKind, item *Item) error {
	switch tag {
	case TagDateTimeString:
		if item.Kind != ItemTextString {
			return d.fail(ErrUnexpectedType)
		}
		item.Kind = ItemDateString
	case TagUnixTime:
		switch item.Kind {
		case ItemUint64, ItemInt64, ItemFloat16, ItemFloat32, ItemFloat64:
		default:
			return d.fail(ErrUnexpectedType)
		}
		item.Kind = ItemDateEpoch
	case TagUnsignedBignum, TagNegativeBignum:
		if item.Kind != ItemByteString {
			return d.fail(ErrUnexpectedType)
		}
		item.Mantissa = &bignumValue{Negative: tag == TagNegativeBignum, Magnitude: item.Bytes}
		item.Kind = ItemBignum
	case TagURI, TagBase64URL, TagBase64, TagRegularExpression, TagMIMEMessage:
		if item.Kind != ItemTextString {
			return d.fail(ErrUnexpectedType)
		}
		item.Kind = kind
	case TagEncodedCborData:
		if item.Kind != ItemByteString {
			return d.fail(ErrUnexpectedType)
		}
		item.Kind = ItemEncodedCBOR
	case TagBinaryUUID:
		if item.Kind != ItemByteString {
			return d.fail(ErrUnexpectedType)
		}
		item.Kind = ItemBinaryUUID
	}
	return nil
}

// decodeExpMantissa reads the [exponent, mantissa] pair RFC 8949 §3.4.4
// requires under tag 4 (decimal fraction) and tag 5 (bigfloat). The
// array's own start/end tokens are consumed here rather than surfaced to
// the caller as an enterable region: the pair is always fully materialized
// as part of the number.
func (d *Decoder) decodeExpMantissa(tag CborTag) (*Item, error) {
	state, err := d.r.PeekState()
	if err != nil {
		return nil, d.fail(err)
	}
	if state != StateStartArray {
		return nil, d.fail(ErrBadExpAndMantissa)
	}
	n, err := d.r.ReadStartArray()
	if err != nil {
		return nil, d.fail(err)
	}
	if n != 2 {
		return nil, d.fail(ErrBadExpAndMantissa)
	}

	expBig, err := d.r.ReadBigInt()
	if err != nil {
		return nil, d.fail(err)
	}
	if !expBig.IsInt64() {
		return nil, d.fail(ErrBadExpAndMantissa)
	}

	mant, err := d.decodeMantissa()
	if err != nil {
		return nil, err
	}

	if err := d.r.ReadEndArray(); err != nil {
		return nil, d.fail(err)
	}

	kind := ItemDecimalFraction
	if tag == TagBigFloat {
		kind = ItemBigFloat
	}
	return &Item{Kind: kind, Exp: expBig.Int64(), Mantissa: mant}, nil
}

func (d *Decoder) decodeMantissa() (*bignumValue, error) {
	state, err := d.r.PeekState()
	if err != nil {
		return nil, d.fail(err)
	}
	switch state {
	case StateUnsignedInteger, StateNegativeInteger:
		bi, err := d.r.ReadBigInt()
		if err != nil {
			return nil, d.fail(err)
		}
		neg := bi.Sign() < 0
		mag := new(big.Int).Abs(bi)
		return &bignumValue{Negative: neg, Magnitude: mag.Bytes()}, nil
	case StateTag:
		tag, err := d.r.ReadTag()
		if err != nil {
			return nil, d.fail(err)
		}
		if tag != TagUnsignedBignum && tag != TagNegativeBignum {
			return nil, d.fail(ErrBadExpAndMantissa)
		}
		b, err := d.r.ReadByteString()
		if err != nil {
			return nil, d.fail(err)
		}
		return &bignumValue{Negative: tag == TagNegativeBignum, Magnitude: b}, nil
	default:
		return nil, d.fail(ErrBadExpAndMantissa)
	}
}

// decodeBaseValue decodes the item at the cursor purely from its major
// type, with no tag interpretation. For arrays and maps only the
// start-container token is consumed.
func (d *Decoder) decodeBaseValue() (*Item, error) {
	state, err := d.r.PeekState()
	if err != nil {
		return nil, d.fail(err)
	}

	switch state {
	case StateUnsignedInteger:
		v, err := d.r.ReadUint64()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemUint64, NumRepr: reprUint, Uint: v}, nil

	case StateNegativeInteger:
		bi, err := d.r.ReadBigInt()
		if err != nil {
			return nil, d.fail(err)
		}
		if bi.IsInt64() {
			return &Item{Kind: ItemInt64, NumRepr: reprNegInt, Int: bi.Int64()}, nil
		}
		mag := new(big.Int).Neg(bi)
		return &Item{Kind: ItemNegativeBignumRaw, NumRepr: reprTooNeg, Mantissa: &bignumValue{Negative: true, Magnitude: mag.Bytes()}}, nil

	case StateByteString, StateStartIndefiniteLengthByteString:
		b, err := d.r.ReadByteString()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemByteString, Bytes: b}, nil

	case StateTextString, StateStartIndefiniteLengthTextString:
		s, err := d.r.ReadTextString()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemTextString, Text: s}, nil

	case StateStartArray:
		n, err := d.r.ReadStartArray()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemArray, Count: int64(n)}, nil

	case StateStartMap:
		n, err := d.r.ReadStartMap()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemMap, Count: int64(n)}, nil

	case StateBoolean:
		b, err := d.r.ReadBoolean()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemBool, Bool: b}, nil

	case StateNull:
		if err := d.r.ReadNull(); err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemNull}, nil

	case StateUndefinedValue:
		if err := d.r.ReadUndefined(); err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemUndefined}, nil

	case StateSimpleValue:
		sv, err := d.r.ReadSimpleValue()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemSimple, Uint: uint64(sv)}, nil

	case StateHalfPrecisionFloat:
		f, err := d.r.ReadFloat16()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemFloat16, Float: float64(f), FloatBits: 16}, nil

	case StateSinglePrecisionFloat:
		f, err := d.r.ReadFloat32()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemFloat32, Float: float64(f), FloatBits: 32}, nil

	case StateDoublePrecisionFloat:
		f, err := d.r.ReadFloat64()
		if err != nil {
			return nil, d.fail(err)
		}
		return &Item{Kind: ItemFloat64, Float: f, FloatBits: 64}, nil

	default:
		return nil, d.fail(ErrInvalidCbor)
	}
}

// GetNextRaw advances the cursor to the next sibling in the current
// region without entering it: arrays and maps are decoded header-only and
// then their entire remaining subtree is skipped in one step.
func (d *Decoder) GetNextRaw() (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	item, err := d.fetchItem()
	if err != nil {
		return nil, err
	}
	switch item.Kind {
	case ItemArray:
		if err := d.skipRemainingInTopRegion(false); err != nil {
			return nil, err
		}
		if err := d.r.ReadEndArray(); err != nil {
			return nil, d.fail(err)
		}
	case ItemMap:
		if err := d.skipRemainingInTopRegion(true); err != nil {
			return nil, err
		}
		if err := d.r.ReadEndMap(); err != nil {
			return nil, d.fail(err)
		}
	}
	return item, nil
}

// GetNextWithTags fetches the next item and requires it to satisfy spec,
// failing with ErrUnexpectedType otherwise. The typed getters in this
// package do not call it (they fetch the item and evaluate their own
// TagSpec); it is exported for callers writing their own tag-aware getters.
func (d *Decoder) GetNextWithTags(spec TagSpec) (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	item, err := d.fetchItem()
	if err != nil {
		return nil, err
	}
	if !spec.matches(item.Tags, item.Kind) {
		return nil, d.fail(ErrUnexpectedType)
	}
	return item, nil
}

func (d *Decoder) skipRemainingInTopRegion(isMap bool) error {
	for {
		state, err := d.r.PeekState()
		if err != nil {
			return d.fail(err)
		}
		if isMap {
			if state == StateEndMap {
				return nil
			}
		} else if state == StateEndArray {
			return nil
		}
		if err := d.r.SkipValue(); err != nil {
			return d.fail(err)
		}
		if isMap {
			if err := d.r.SkipValue(); err != nil {
				return d.fail(err)
			}
		}
	}
}

// EnterMap enters the map at the cursor, pushing a new region so that
// subsequent GetNextRaw/typed-getter calls operate on the map's entries
// until a matching ExitMap.
func (d *Decoder) EnterMap() (*Item, error) {
	return d.enterRegion(regionMap)
}

// EnterArray enters the array at the cursor.
func (d *Decoder) EnterArray() (*Item, error) {
	return d.enterRegion(regionArray)
}

func (d *Decoder) enterRegion(kind regionKind) (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	if err := d.checkBound(); err != nil {
		return nil, err
	}

	lbl, hadKey, err := d.readLabel()
	if err != nil {
		return nil, d.fail(err)
	}

	item, err := d.enterRegionBody(kind)
	if err != nil {
		return nil, err
	}

	if hadKey && lbl.Kind != LabelNone {
		item.HasLabel = true
		item.Label = lbl
	}
	return item, nil
}

// enterRegionAt enters the region at the cursor when the cursor is already
// known to sit on a map value (no label left to read), as happens right
// after enterFromMapByLabel jumps straight to an entry's value. lbl is the
// label the caller already located by search.
func (d *Decoder) enterRegionAt(kind regionKind, lbl Label) (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	item, err := d.enterRegionBody(kind)
	if err != nil {
		return nil, err
	}
	item.HasLabel = true
	item.Label = lbl
	return item, nil
}

func (d *Decoder) enterRegionBody(kind regionKind) (*Item, error) {
	tags, err := d.readTagRun()
	if err != nil {
		return nil, err
	}

	state, err := d.r.PeekState()
	if err != nil {
		return nil, d.fail(err)
	}

	var item *Item
	if kind == regionMap {
		if state != StateStartMap {
			return nil, d.fail(ErrUnexpectedType)
		}
		n, err := d.r.ReadStartMap()
		if err != nil {
			return nil, d.fail(err)
		}
		item = &Item{Kind: ItemMap, Count: int64(n), Tags: tags}
		err = d.stack.push(nestingFrame{
			kind:              regionMap,
			mapStartOffset:    d.r.CurrentOffset(),
			mapDefiniteLength: int64(n),
			mapIndefinite:     n == -1,
		})
		if err != nil {
			return nil, d.fail(err)
		}
	} else {
		if state != StateStartArray {
			return nil, d.fail(ErrUnexpectedType)
		}
		n, err := d.r.ReadStartArray()
		if err != nil {
			return nil, d.fail(err)
		}
		item = &Item{Kind: ItemArray, Count: int64(n), Tags: tags}
		if err := d.stack.push(nestingFrame{kind: regionArray}); err != nil {
			return nil, d.fail(err)
		}
	}

	return item, nil
}

// ExitMap closes the most recently entered map region, silently skipping
// any entries the caller never fetched.
func (d *Decoder) ExitMap() error {
	if d.err != nil {
		return d.err
	}
	if d.stack.top().kind != regionMap {
		return d.fail(ErrCloseMismatch)
	}
	if err := d.skipRemainingInTopRegion(true); err != nil {
		return err
	}
	if err := d.r.ReadEndMap(); err != nil {
		return d.fail(err)
	}
	d.stack.pop()
	return nil
}

// ExitArray closes the most recently entered array region, silently
// skipping any elements the caller never fetched.
func (d *Decoder) ExitArray() error {
	if d.err != nil {
		return d.err
	}
	if d.stack.top().kind != regionArray {
		return d.fail(ErrCloseMismatch)
	}
	if err := d.skipRemainingInTopRegion(false); err != nil {
		return err
	}
	if err := d.r.ReadEndArray(); err != nil {
		return d.fail(err)
	}
	d.stack.pop()
	return nil
}

// RewindMap resets the cursor back to the first entry of the current map
// region, so a caller that has done one or more label-based lookups (which
// reposition the cursor non-sequentially) can restart a sequential scan.
// A sticky ErrNoMoreItems is cleared first; any other sticky error is
// returned unchanged.
func (d *Decoder) RewindMap() error {
	if d.err != nil {
		if d.err.Err != ErrNoMoreItems {
			return d.err
		}
		d.err = nil
	}
	f := d.stack.top()
	if f.kind != regionMap {
		return d.fail(ErrMapNotEntered)
	}
	d.r.offset = f.mapStartOffset
	*d.topReaderFrame() = readerNestingInfo{
		majorType:      MajorTypeMap,
		isMap:          true,
		definiteLength: f.mapDefiniteLength,
		isIndefinite:   f.mapIndefinite,
	}
	d.r.invalidateState()
	return nil
}

// EnterBstrWrapped treats the byte string (or tag-24 encoded CBOR item)
// at the cursor as a nested CBOR stream and re-aims the reader at it,
// without copying: the reader's buffer and offset are swapped out and
// restored by ExitBstrWrapped. req controls whether tag 24 must actually
// be present (MatchTag), any byte string is accepted regardless of a tag
// (MatchContentType), or either (MatchEither).
func (d *Decoder) EnterBstrWrapped(req TagRequirement) (*Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	item, err := d.fetchItem()
	if err != nil {
		return nil, err
	}
	spec := TagSpec{Tag: TagEncodedCborData, Requirement: req, ContentKinds: []ItemKind{ItemByteString, ItemEncodedCBOR}}
	if !spec.matches(item.Tags, item.Kind) {
		return nil, d.fail(ErrUnexpectedType)
	}

	err = d.stack.push(nestingFrame{
		kind:        regionBstrWrap,
		savedData:   d.r.data,
		savedOffset: d.r.offset,
	})
	if err != nil {
		return nil, d.fail(err)
	}

	d.r.data = item.Bytes
	d.r.offset = 0
	d.r.invalidateState()
	return item, nil
}

// ExitBstrWrapped restores the reader to the outer byte stream at the
// point just after the wrapped byte string, discarding any unread bytes
// left inside the wrapped region.
func (d *Decoder) ExitBstrWrapped() error {
	if d.err != nil {
		return d.err
	}
	if d.stack.top().kind != regionBstrWrap {
		return d.fail(ErrCloseMismatch)
	}
	f := d.stack.pop()
	d.r.data = f.savedData
	d.r.offset = f.savedOffset
	d.r.invalidateState()
	return nil
}
