package cbor

// DecodeSequence decodes an RFC 8742 CBOR Sequence: zero or more
// top-level data items concatenated with no wrapping array, as produced
// e.g. by streaming one CBOR value per line of a log. It is a thin
// convenience over repeatedly driving a Decoder with
// WithDecoderAllowMultipleRootValues, grounded in the same GetNextRaw
// cursor the rest of this package uses for sequential traversal.
func DecodeSequence(data []byte, opts ...DecodeOption) ([]*Item, error) {
	opts = append(opts, WithDecoderAllowMultipleRootValues(true))
	d := NewDecoder(data, opts...)

	var items []*Item
	for {
		state, err := d.r.PeekState()
		if err != nil {
			return nil, d.fail(err)
		}
		if state == StateFinished {
			break
		}
		item, err := d.GetNextRaw()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := d.Finish(); err != nil {
		return nil, err
	}
	return items, nil
}
