// builder.go implements block building with first-key prefix compression.
//
// Reference: RocksDB v10.7.5 table/block_based/block_builder.{h,cc} for the
// overall Add/Finish/Reset shape, simplified here to a single overlap
// baseline (the block's first key) instead of restart-point intervals,
// and to fixed-width u16 fields instead of varints.
package block

import (
	"errors"

	"github.com/aalhour/lsmkv/internal/encoding"
	"github.com/aalhour/lsmkv/internal/logging"
)

// ErrEmptyKey is returned (or, for Add, signaled via panic per the
// package's fail-fast convention for programmer errors) when a
// zero-length key reaches the builder.
var ErrEmptyKey = errors.New("block: key must not be empty")

// ErrEmptyBlock is the panic value Build uses when asked to finalize a
// builder that never accepted an entry.
var ErrEmptyBlock = errors.New("block: cannot build an empty block")

// entryOverhead is the byte cost of an entry's three u16 fields
// (overlap, suffix length, value length) that Add's size check must
// account for in addition to the key/value bytes themselves.
const entryOverhead = 6

// maxEntries bounds a block to what a u16 offset-table index can
// address.
const maxEntries = 65535

// Builder accumulates a sorted run of (key, value) pairs into one
// Block. It does not verify sort order; the caller (the SST builder)
// guarantees it.
type Builder struct {
	targetSize int
	data       []byte
	offsets    []uint16
	firstKey   []byte
	logger     logging.Logger
}

// NewBuilder configures a Builder whose payload should stay within
// targetSize bytes, a soft limit: the first pair added is always
// accepted regardless of size.
func NewBuilder(targetSize int) *Builder {
	return &Builder{targetSize: targetSize, logger: logging.Discard}
}

// SetLogger attaches a logger to the builder; messages are emitted
// under the [block] namespace. Passing nil restores the discard
// logger.
func (b *Builder) SetLogger(l logging.Logger) {
	if logging.IsNil(l) {
		b.logger = logging.Discard
		return
	}
	b.logger = l
}

// IsEmpty reports whether the builder has accepted any entries.
func (b *Builder) IsEmpty() bool {
	return len(b.offsets) == 0
}

// EstimatedSize returns 2 + 2*num_entries + len(data): the trailing
// entry count, the offset table, and the entry payload accumulated so
// far.
func (b *Builder) EstimatedSize() int {
	return 2 + 2*len(b.offsets) + len(b.data)
}

// Add appends key/value if the block has room. It refuses (returning
// false, changing nothing) when the block already holds at least one
// entry and accepting this one would push EstimatedSize()+overhead
// past targetSize. The first entry is always accepted. Add panics if
// key is empty -- this is a programmer error, not a runtime condition
// callers are expected to handle.
func (b *Builder) Add(key, value []byte) bool {
	if len(key) == 0 {
		panic(ErrEmptyKey)
	}
	if len(b.offsets) >= maxEntries {
		return false
	}

	grow := entryOverhead + len(key) + len(value)
	if !b.IsEmpty() && b.EstimatedSize()+grow > b.targetSize {
		b.logger.Debugf(logging.NSBlock+"refusing entry (%d bytes): would grow %d-byte block past target %d", grow, b.EstimatedSize(), b.targetSize)
		return false
	}

	overlap := 0
	if !b.IsEmpty() {
		overlap = sharedPrefixLength(b.firstKey, key)
	} else {
		b.firstKey = append([]byte(nil), key...)
	}
	rest := key[overlap:]

	b.offsets = append(b.offsets, uint16(len(b.data)))
	b.data = encoding.AppendFixed16(b.data, uint16(overlap))
	b.data = encoding.AppendFixed16(b.data, uint16(len(rest)))
	b.data = append(b.data, rest...)
	b.data = encoding.AppendFixed16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)

	return true
}

// Build consumes the builder and produces the finished Block. It
// panics with ErrEmptyBlock if no entry was ever accepted -- callers
// (the SST builder) must never call Build on an empty builder, per
// the block-never-empty invariant.
func (b *Builder) Build() Block {
	if b.IsEmpty() {
		panic(ErrEmptyBlock)
	}
	data := append(b.data, encodeTrailer(b.offsets)...)
	b.logger.Debugf(logging.NSBlock+"built block: %d entries, %d bytes", len(b.offsets), len(data))
	return Block{raw: data}
}

func encodeTrailer(offsets []uint16) []byte {
	trailer := make([]byte, 0, 2*len(offsets)+2)
	for _, off := range offsets {
		trailer = encoding.AppendFixed16(trailer, off)
	}
	trailer = encoding.AppendFixed16(trailer, uint16(len(offsets)))
	return trailer
}

func sharedPrefixLength(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
