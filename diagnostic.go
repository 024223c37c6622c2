package cbor

import (
	"fmt"
	"strings"
)

// This file supplements the core cursor API with RFC 8949 §8 diagnostic
// notation rendering, in the spirit of the teacher's own String()
// methods on MajorType/CborReaderState: a human-readable view that never
// disturbs the caller's traversal.

// decoderSnapshot captures everything Dump needs to undo: both the
// reader's own container bookkeeping and the decoder's region stack.
type decoderSnapshot struct {
	data         []byte
	offset       int
	readerFrames []readerNestingInfo
	ourFrames    []nestingFrame
}

func (d *Decoder) snapshot() decoderSnapshot {
	rf := make([]readerNestingInfo, len(d.r.nestingStack))
	copy(rf, d.r.nestingStack)
	of := make([]nestingFrame, len(d.stack.frames))
	copy(of, d.stack.frames)
	return decoderSnapshot{
		data:         d.r.data,
		offset:       d.r.offset,
		readerFrames: rf,
		ourFrames:    of,
	}
}

func (d *Decoder) restore(s decoderSnapshot) {
	d.r.data = s.data
	d.r.offset = s.offset
	d.r.nestingStack = s.readerFrames
	d.stack.frames = append(d.stack.frames[:0], s.ourFrames...)
	d.r.invalidateState()
}

// Dump renders the remaining items in the current region as RFC 8949 §8
// diagnostic notation and leaves the cursor exactly where it found it.
func (d *Decoder) Dump() (string, error) {
	if d.err != nil {
		return "", d.err
	}
	snap := d.snapshot()
	defer d.restore(snap)

	var sb strings.Builder
	if err := d.dumpRemaining(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (d *Decoder) regionAtEnd(state CborReaderState) bool {
	switch d.stack.top().kind {
	case regionMap:
		return state == StateEndMap
	case regionArray:
		return state == StateEndArray
	default:
		return state == StateFinished
	}
}

func (d *Decoder) dumpRemaining(sb *strings.Builder) error {
	first := true
	for {
		state, err := d.r.PeekState()
		if err != nil {
			return d.fail(err)
		}
		if d.regionAtEnd(state) {
			return nil
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		if err := d.dumpItem(sb); err != nil {
			return err
		}
	}
}

func (d *Decoder) dumpItem(sb *strings.Builder) error {
	item, err := d.fetchItem()
	if err != nil {
		return err
	}
	if item.HasLabel {
		writeLabel(sb, item.Label)
		sb.WriteString(": ")
	}
	for _, t := range item.Tags {
		fmt.Fprintf(sb, "%d(", t)
	}
	if err := d.dumpItemValue(sb, item); err != nil {
		return err
	}
	for range item.Tags {
		sb.WriteString(")")
	}
	return nil
}

func (d *Decoder) dumpItemValue(sb *strings.Builder, item *Item) error {
	switch item.Kind {
	case ItemUint64:
		fmt.Fprintf(sb, "%d", item.Uint)
	case ItemInt64:
		fmt.Fprintf(sb, "%d", item.Int)
	case ItemNegativeBignumRaw, ItemBignum:
		fmt.Fprintf(sb, "%s", bignumToBigInt(item.Mantissa).String())
	case ItemByteString, ItemBinaryUUID:
		fmt.Fprintf(sb, "h'%x'", item.Bytes)
	case ItemTextString, ItemDateString, ItemURI, ItemB64, ItemB64URL, ItemRegex, ItemMIME:
		fmt.Fprintf(sb, "%q", item.Text)
	case ItemBool:
		fmt.Fprintf(sb, "%t", item.Bool)
	case ItemNull:
		sb.WriteString("null")
	case ItemUndefined:
		sb.WriteString("undefined")
	case ItemSimple:
		fmt.Fprintf(sb, "simple(%d)", item.Uint)
	case ItemFloat16, ItemFloat32, ItemFloat64:
		fmt.Fprintf(sb, "%v", item.Float)
	case ItemDateEpoch:
		fmt.Fprintf(sb, "%v", epochValue(item))
	case ItemDecimalFraction, ItemBigFloat:
		fmt.Fprintf(sb, "[%d, %s]", item.Exp, bignumToBigInt(item.Mantissa).String())
	case ItemEncodedCBOR:
		fmt.Fprintf(sb, "<<%d bytes>>", len(item.Bytes))
	case ItemArray:
		sb.WriteString("[")
		if err := d.stack.push(nestingFrame{kind: regionArray}); err != nil {
			return d.fail(err)
		}
		if err := d.dumpRemaining(sb); err != nil {
			return err
		}
		d.stack.pop()
		if err := d.r.ReadEndArray(); err != nil {
			return d.fail(err)
		}
		sb.WriteString("]")
	case ItemMap:
		sb.WriteString("{")
		if err := d.stack.push(nestingFrame{kind: regionMap}); err != nil {
			return d.fail(err)
		}
		if err := d.dumpRemaining(sb); err != nil {
			return err
		}
		d.stack.pop()
		if err := d.r.ReadEndMap(); err != nil {
			return d.fail(err)
		}
		sb.WriteString("}")
	default:
		sb.WriteString("?")
	}
	return nil
}

func writeLabel(sb *strings.Builder, l Label) {
	switch l.Kind {
	case LabelInt:
		fmt.Fprintf(sb, "%d", l.Int)
	case LabelText:
		fmt.Fprintf(sb, "%q", l.Text)
	}
}
