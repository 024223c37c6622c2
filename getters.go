package cbor

// Conversion-mask bits accepted by the ...Convert and ...ConvertAll family
// of getters: they control which wire representations the ladder in
// ladder.go is allowed to widen from when the caller asked for a specific
// Go numeric type instead of the exact wire type.
const (
	ConvInt64           uint32 = 0x01
	ConvUInt64          uint32 = 0x02
	ConvFloat           uint32 = 0x04
	ConvBigFloat        uint32 = 0x08
	ConvDecimalFraction uint32 = 0x10
	ConvBigNum          uint32 = 0x20
	ConvDouble          uint32 = 0x40
	ConvXInt64          uint32 = 0x80

	ConvAll uint32 = ConvInt64 | ConvUInt64 | ConvFloat | ConvBigFloat |
		ConvDecimalFraction | ConvBigNum | ConvDouble | ConvXInt64
)

// GetInt64 requires the item to already be a plain CBOR integer.
func (d *Decoder) GetInt64() (int64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	if item.Kind != ItemInt64 && item.Kind != ItemUint64 {
		return 0, d.fail(ErrUnexpectedType)
	}
	return d.convertToInt64(item, ConvUInt64)
}

// GetInt64Convert widens any numeric representation allowed by mask to
// an int64.
func (d *Decoder) GetInt64Convert(mask uint32) (int64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	return d.convertToInt64(item, mask)
}

// GetInt64ConvertAll is GetInt64Convert with every representation allowed.
func (d *Decoder) GetInt64ConvertAll() (int64, error) {
	return d.GetInt64Convert(ConvAll)
}

// GetInt64InMapN fetches the labeled entry and requires it to already be
// a plain CBOR integer.
func (d *Decoder) GetInt64InMapN(label int64) (int64, error) {
	item, err := d.GetItemInMapN(label, ItemAny)
	if err != nil {
		return 0, err
	}
	return d.convertToInt64(item, ConvUInt64)
}

// GetInt64InMapSZ is GetInt64InMapN with a text label.
func (d *Decoder) GetInt64InMapSZ(label string) (int64, error) {
	item, err := d.GetItemInMapSZ(label, ItemAny)
	if err != nil {
		return 0, err
	}
	return d.convertToInt64(item, ConvUInt64)
}

// GetUInt64 requires the item to already be a plain non-negative CBOR
// integer.
func (d *Decoder) GetUInt64() (uint64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	if item.Kind != ItemUint64 {
		return 0, d.fail(ErrUnexpectedType)
	}
	return item.Uint, nil
}

// GetUInt64Convert widens any numeric representation allowed by mask to
// a uint64.
func (d *Decoder) GetUInt64Convert(mask uint32) (uint64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	return d.convertToUint64(item, mask)
}

// GetUInt64ConvertAll is GetUInt64Convert with every representation
// allowed.
func (d *Decoder) GetUInt64ConvertAll() (uint64, error) {
	return d.GetUInt64Convert(ConvAll)
}

// GetDouble requires the item to already be a CBOR float.
func (d *Decoder) GetDouble() (float64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	switch item.Kind {
	case ItemFloat16, ItemFloat32, ItemFloat64:
		return item.Float, nil
	default:
		return 0, d.fail(ErrUnexpectedType)
	}
}

// GetDoubleConvert widens any numeric representation allowed by mask to a
// float64.
func (d *Decoder) GetDoubleConvert(mask uint32) (float64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	return d.convertToDouble(item, mask)
}

// GetDoubleConvertAll is GetDoubleConvert with every representation
// allowed.
func (d *Decoder) GetDoubleConvertAll() (float64, error) {
	return d.GetDoubleConvert(ConvAll)
}

// GetBytes requires the item to be an untagged byte string.
func (d *Decoder) GetBytes() ([]byte, error) {
	item, err := d.fetchItem()
	if err != nil {
		return nil, err
	}
	if item.Kind != ItemByteString {
		return nil, d.fail(ErrUnexpectedType)
	}
	return item.Bytes, nil
}

// GetBytesInMapN fetches the byte string at the given integer label.
func (d *Decoder) GetBytesInMapN(label int64) ([]byte, error) {
	item, err := d.GetItemInMapN(label, ItemAny)
	if err != nil {
		return nil, err
	}
	if item.Kind != ItemByteString {
		return nil, d.fail(ErrUnexpectedType)
	}
	return item.Bytes, nil
}

// GetBytesInMapSZ is GetBytesInMapN with a text label.
func (d *Decoder) GetBytesInMapSZ(label string) ([]byte, error) {
	item, err := d.GetItemInMapSZ(label, ItemAny)
	if err != nil {
		return nil, err
	}
	if item.Kind != ItemByteString {
		return nil, d.fail(ErrUnexpectedType)
	}
	return item.Bytes, nil
}

// GetText requires the item to be an untagged text string.
func (d *Decoder) GetText() (string, error) {
	item, err := d.fetchItem()
	if err != nil {
		return "", err
	}
	if item.Kind != ItemTextString {
		return "", d.fail(ErrUnexpectedType)
	}
	return item.Text, nil
}

// GetTextInMapN fetches the text string at the given integer label.
func (d *Decoder) GetTextInMapN(label int64) (string, error) {
	item, err := d.GetItemInMapN(label, ItemAny)
	if err != nil {
		return "", err
	}
	if item.Kind != ItemTextString {
		return "", d.fail(ErrUnexpectedType)
	}
	return item.Text, nil
}

// GetTextInMapSZ is GetTextInMapN with a text label.
func (d *Decoder) GetTextInMapSZ(label string) (string, error) {
	item, err := d.GetItemInMapSZ(label, ItemAny)
	if err != nil {
		return "", err
	}
	if item.Kind != ItemTextString {
		return "", d.fail(ErrUnexpectedType)
	}
	return item.Text, nil
}

// GetBool requires the item to be a CBOR boolean.
func (d *Decoder) GetBool() (bool, error) {
	item, err := d.fetchItem()
	if err != nil {
		return false, err
	}
	if item.Kind != ItemBool {
		return false, d.fail(ErrUnexpectedType)
	}
	return item.Bool, nil
}

// GetDateString requires a tag-0 RFC 3339 date/time string and returns it
// unparsed, matching the teacher reader's own string-first philosophy for
// this tag. req controls whether the tag itself, the underlying text
// string content, or either is enough to accept the item.
func (d *Decoder) GetDateString(req TagRequirement) (string, error) {
	item, err := d.fetchItem()
	if err != nil {
		return "", err
	}
	spec := TagSpec{Tag: TagDateTimeString, Requirement: req, ContentKinds: []ItemKind{ItemTextString, ItemDateString}}
	if !spec.matches(item.Tags, item.Kind) {
		return "", d.fail(ErrUnexpectedType)
	}
	return item.Text, nil
}

// GetEpochDate requires a tag-1 epoch date/time and returns the number of
// seconds (and fractional seconds, for float encodings) since the epoch.
func (d *Decoder) GetEpochDate() (float64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	if item.Kind != ItemDateEpoch {
		return 0, d.fail(ErrUnexpectedType)
	}
	return epochValue(item), nil
}

func epochValue(item *Item) float64 {
	switch {
	case item.FloatBits != 0:
		return item.Float
	case item.NumRepr == reprUint:
		return float64(item.Uint)
	default:
		return float64(item.Int)
	}
}

// GetBignum requires a tag-2/3 bignum and returns its sign and big-endian
// magnitude exactly as encoded.
func (d *Decoder) GetBignum() (negative bool, magnitude []byte, err error) {
	item, ferr := d.fetchItem()
	if ferr != nil {
		return false, nil, ferr
	}
	if item.Kind != ItemBignum {
		return false, nil, d.fail(ErrUnexpectedType)
	}
	return item.Mantissa.Negative, item.Mantissa.Magnitude, nil
}

// GetDecimalFractionBig requires a tag-4 decimal fraction and returns its
// exponent and signed mantissa exactly as encoded, with no float rounding.
func (d *Decoder) GetDecimalFractionBig() (exp int64, mantissaNegative bool, mantissa []byte, err error) {
	item, ferr := d.fetchItem()
	if ferr != nil {
		return 0, false, nil, ferr
	}
	if item.Kind != ItemDecimalFraction {
		return 0, false, nil, d.fail(ErrUnexpectedType)
	}
	return item.Exp, item.Mantissa.Negative, item.Mantissa.Magnitude, nil
}

// GetDecimalFraction requires a tag-4 decimal fraction and widens it to a
// float64 via the conversion ladder.
func (d *Decoder) GetDecimalFraction() (float64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	if item.Kind != ItemDecimalFraction {
		return 0, d.fail(ErrUnexpectedType)
	}
	return decimalFractionToFloat64(item.Mantissa, item.Exp)
}

// GetBigFloatBig requires a tag-5 bigfloat and returns its exponent and
// signed mantissa exactly as encoded.
func (d *Decoder) GetBigFloatBig() (exp int64, mantissaNegative bool, mantissa []byte, err error) {
	item, ferr := d.fetchItem()
	if ferr != nil {
		return 0, false, nil, ferr
	}
	if item.Kind != ItemBigFloat {
		return 0, false, nil, d.fail(ErrUnexpectedType)
	}
	return item.Exp, item.Mantissa.Negative, item.Mantissa.Magnitude, nil
}

// GetBigFloat requires a tag-5 bigfloat and widens it to a float64.
func (d *Decoder) GetBigFloat() (float64, error) {
	item, err := d.fetchItem()
	if err != nil {
		return 0, err
	}
	if item.Kind != ItemBigFloat {
		return 0, d.fail(ErrUnexpectedType)
	}
	return bigFloatToFloat64(item.Mantissa, item.Exp), nil
}

// getTaggedText fetches an item expected to carry tag (with content kind
// want) and applies req the same way every tag-content getter does: MatchTag
// requires the tag byte itself, MatchContentType accepts a bare text string
// with no tag at all, MatchEither accepts either.
func (d *Decoder) getTaggedText(tag CborTag, want ItemKind, req TagRequirement) (string, error) {
	item, err := d.fetchItem()
	if err != nil {
		return "", err
	}
	spec := TagSpec{Tag: tag, Requirement: req, ContentKinds: []ItemKind{ItemTextString, want}}
	if !spec.matches(item.Tags, item.Kind) {
		return "", d.fail(ErrUnexpectedType)
	}
	return item.Text, nil
}

func (d *Decoder) getTaggedBytes(tag CborTag, want ItemKind, req TagRequirement) ([]byte, error) {
	item, err := d.fetchItem()
	if err != nil {
		return nil, err
	}
	spec := TagSpec{Tag: tag, Requirement: req, ContentKinds: []ItemKind{ItemByteString, want}}
	if !spec.matches(item.Tags, item.Kind) {
		return nil, d.fail(ErrUnexpectedType)
	}
	return item.Bytes, nil
}

// GetURI requires a tag-32 URI.
func (d *Decoder) GetURI(req TagRequirement) (string, error) {
	return d.getTaggedText(TagURI, ItemURI, req)
}

// GetB64 requires a tag-34 base64-encoded text string.
func (d *Decoder) GetB64(req TagRequirement) (string, error) {
	return d.getTaggedText(TagBase64, ItemB64, req)
}

// GetB64URL requires a tag-33 base64url-encoded text string.
func (d *Decoder) GetB64URL(req TagRequirement) (string, error) {
	return d.getTaggedText(TagBase64URL, ItemB64URL, req)
}

// GetRegex requires a tag-35 regular expression.
func (d *Decoder) GetRegex(req TagRequirement) (string, error) {
	return d.getTaggedText(TagRegularExpression, ItemRegex, req)
}

// GetMIMEMessage requires a tag-36 MIME message.
func (d *Decoder) GetMIMEMessage(req TagRequirement) (string, error) {
	return d.getTaggedText(TagMIMEMessage, ItemMIME, req)
}

// GetBinaryUUID requires a tag-37 binary UUID and returns its raw bytes;
// the length is not checked.
func (d *Decoder) GetBinaryUUID(req TagRequirement) ([]byte, error) {
	return d.getTaggedBytes(TagBinaryUUID, ItemBinaryUUID, req)
}
