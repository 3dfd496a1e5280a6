// block.go implements the decoded view over one encoded block: a
// sorted, first-key-prefix-compressed run of entries with a trailing
// offset index.
//
// Reference: RocksDB v10.7.5 table/block_based/block.{h,cc} for the
// overall decode-on-demand shape; the wire format itself departs from
// RocksDB's varint/restart-point scheme (see builder.go).
package block

import (
	"errors"

	"github.com/aalhour/lsmkv/internal/encoding"
)

// ErrBadBlock is returned when a byte slice cannot be decoded as a
// well-formed block: too short to hold its own trailer, or an offset
// that falls outside the data region.
var ErrBadBlock = errors.New("block: malformed encoded block")

// Block is an immutable, already-encoded run of entries plus its
// offset index. It is safe to share across goroutines: nothing about
// a Block is ever mutated after Builder.Build produces it.
type Block struct {
	raw []byte
}

// NewBlockFromBytes wraps a byte slice produced by a prior Builder.Build
// (or read from an SST file) as a Block, validating just enough to
// make iteration and seek safe: that the trailer is present and the
// offset table doesn't point outside the data region.
func NewBlockFromBytes(raw []byte) (Block, error) {
	b := Block{raw: raw}
	data, offsets, err := b.offsetsTable()
	if err != nil {
		return Block{}, err
	}
	for _, off := range offsets {
		if int(off) >= len(data) {
			return Block{}, ErrBadBlock
		}
	}
	return b, nil
}

// Bytes returns the block's encoded wire form.
func (b Block) Bytes() []byte {
	return b.raw
}

func (b Block) numEntries() (int, error) {
	if len(b.raw) < 2 {
		return 0, ErrBadBlock
	}
	n := int(encoding.DecodeFixed16(b.raw[len(b.raw)-2:]))
	trailerLen := 2 + 2*n
	if len(b.raw) < trailerLen {
		return 0, ErrBadBlock
	}
	return n, nil
}

// offsetsTable returns the block's data region and its parallel offset
// table.
func (b Block) offsetsTable() (data []byte, offsets []uint16, err error) {
	n, err := b.numEntries()
	if err != nil {
		return nil, nil, err
	}
	trailerLen := 2 + 2*n
	data = b.raw[:len(b.raw)-trailerLen]
	offsetBytes := b.raw[len(b.raw)-trailerLen : len(b.raw)-2]
	offsets = make([]uint16, n)
	for i := 0; i < n; i++ {
		offsets[i] = encoding.DecodeFixed16(offsetBytes[2*i:])
	}
	return data, offsets, nil
}

// entryAt decodes the entry starting at data[off:], given firstKey to
// resolve the overlap prefix against. It returns the materialized key,
// the [begin,end) byte range of the value within data, and the byte
// offset one past the end of the entry record.
func entryAt(data, firstKey []byte, off int) (key []byte, valueBegin, valueEnd, next int, err error) {
	if off+entryOverhead > len(data) {
		return nil, 0, 0, 0, ErrBadBlock
	}
	overlap := int(encoding.DecodeFixed16(data[off:]))
	restLen := int(encoding.DecodeFixed16(data[off+2:]))
	restStart := off + 4
	if overlap > len(firstKey) || restStart+restLen+2 > len(data) {
		return nil, 0, 0, 0, ErrBadBlock
	}
	rest := data[restStart : restStart+restLen]
	valueLenOff := restStart + restLen
	valueLen := int(encoding.DecodeFixed16(data[valueLenOff:]))
	valueBegin = valueLenOff + 2
	valueEnd = valueBegin + valueLen
	if valueEnd > len(data) {
		return nil, 0, 0, 0, ErrBadBlock
	}

	key = make([]byte, overlap+restLen)
	copy(key, firstKey[:overlap])
	copy(key[overlap:], rest)

	return key, valueBegin, valueEnd, valueEnd, nil
}
