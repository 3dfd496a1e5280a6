// builder.go assembles a sorted (key, value) stream into an immutable
// SST file: a sequence of blocks, a meta-index, and a trailing
// 4-byte offset pointing at that index.
//
// Reference: RocksDB v10.7.5 table/block_based/block_based_table_builder.cc
// for the overall Add/seal-on-refusal/Finish shape, trimmed to this
// engine's single-level block layout (no index block, no filter
// block, no compression, no properties block).
package table

import (
	"errors"

	"github.com/aalhour/lsmkv/internal/block"
	"github.com/aalhour/lsmkv/internal/cache"
	"github.com/aalhour/lsmkv/internal/encoding"
	"github.com/aalhour/lsmkv/internal/logging"
)

// ErrEmptyTable is returned by Build when no (key, value) pair was
// ever added.
var ErrEmptyTable = errors.New("table: cannot build an SST with no entries")

// SstBuilder consumes a sorted stream of (key, value) pairs, chunking
// it into blocks of roughly blockSize bytes each.
type SstBuilder struct {
	blockSize int
	cur       *block.Builder
	logger    logging.Logger

	payload []byte
	metas   []BlockMeta

	curFirstKey []byte
	curLastKey  []byte

	firstKey []byte
	lastKey  []byte
}

// NewSstBuilder configures a builder whose blocks target blockSize
// payload bytes each.
func NewSstBuilder(blockSize int) *SstBuilder {
	return &SstBuilder{
		blockSize: blockSize,
		cur:       block.NewBuilder(blockSize),
		logger:    logging.Discard,
	}
}

// SetLogger attaches a logger to the builder; messages are emitted
// under the [table] namespace. Passing nil restores the discard
// logger.
func (b *SstBuilder) SetLogger(l logging.Logger) {
	if logging.IsNil(l) {
		b.logger = logging.Discard
		b.cur.SetLogger(logging.Discard)
		return
	}
	b.logger = l
	b.cur.SetLogger(l)
}

// Add forwards key/value to the current block. If the block refuses
// the pair (it is full), the current block is sealed and a fresh one
// started; the retry is guaranteed to succeed by the block builder's
// first-pair-always-accepted rule.
func (b *SstBuilder) Add(key, value []byte) {
	if !b.cur.Add(key, value) {
		b.completeCurrentBlock()
		b.cur = block.NewBuilder(b.blockSize)
		b.cur.SetLogger(b.logger)
		if !b.cur.Add(key, value) {
			panic("table: fresh block builder refused its first pair")
		}
	}

	if b.curFirstKey == nil {
		b.curFirstKey = append([]byte(nil), key...)
	}
	b.curLastKey = append([]byte(nil), key...)

	if b.firstKey == nil {
		b.firstKey = append([]byte(nil), key...)
	}
	b.lastKey = append([]byte(nil), key...)
}

// EstimatedSize returns the running byte length of already-sealed
// blocks; the meta-index is comparatively small and is not counted.
func (b *SstBuilder) EstimatedSize() int {
	return len(b.payload)
}

// completeCurrentBlock seals the in-progress block (if non-empty),
// appending its bytes to the payload and recording a BlockMeta
// snapshot of its position and key range.
func (b *SstBuilder) completeCurrentBlock() {
	if b.cur.IsEmpty() {
		return
	}
	offset := uint32(len(b.payload))
	blk := b.cur.Build()
	b.payload = append(b.payload, blk.Bytes()...)
	b.metas = append(b.metas, BlockMeta{
		Offset:   offset,
		FirstKey: b.curFirstKey,
		LastKey:  b.curLastKey,
	})
	b.logger.Debugf(logging.NSTable+"sealed block %d at offset %d (%d bytes)", len(b.metas)-1, offset, len(blk.Bytes()))
	b.curFirstKey, b.curLastKey = nil, nil
}

// Build seals the final block, appends the meta-index and its
// trailing offset, persists the result through file, and returns a
// readable handle over it. cache may be nil.
func (b *SstBuilder) Build(id uint64, file FileObject, path string, blockCache cache.Cache) (*SSTable, error) {
	b.completeCurrentBlock()
	if len(b.metas) == 0 {
		return nil, ErrEmptyTable
	}

	metaOffset := uint32(len(b.payload))
	metaBytes := encodeMetaList(b.metas)

	full := make([]byte, 0, len(b.payload)+len(metaBytes)+4)
	full = append(full, b.payload...)
	full = append(full, metaBytes...)
	full = encoding.AppendFixed32(full, metaOffset)

	if err := file.Create(path, full); err != nil {
		b.logger.Errorf(logging.NSTable+"build %d failed writing %s: %v", id, path, err)
		return nil, err
	}
	b.logger.Infof(logging.NSTable+"built sst %d at %s: %d blocks, %d bytes", id, path, len(b.metas), len(full))

	return &SSTable{
		id:             id,
		firstKey:       b.firstKey,
		lastKey:        b.lastKey,
		meta:           b.metas,
		metaOffset:     metaOffset,
		cache:          blockCache,
		file:           file,
		path:           path,
		fileSize:       int64(len(full)),
		logger:         b.logger,
		blockChecksums: make(map[int]uint32),
	}, nil
}
