// sstable.go is the read-side counterpart to builder.go: given a
// built file's bytes (or a FileObject handle to re-open one), locate
// and decode the block holding a given key.
package table

import (
	"bytes"
	"errors"

	"github.com/aalhour/lsmkv/internal/block"
	"github.com/aalhour/lsmkv/internal/cache"
	"github.com/aalhour/lsmkv/internal/checksum"
	"github.com/aalhour/lsmkv/internal/encoding"
	"github.com/aalhour/lsmkv/internal/logging"
)

// ErrKeyNotFound is returned by Get when no block's key range could
// contain key, or the key's own block doesn't hold it.
var ErrKeyNotFound = errors.New("table: key not found")

// SSTable is a readable handle over one immutable, already-built SST
// file.
type SSTable struct {
	id         uint64
	firstKey   []byte
	lastKey    []byte
	meta       []BlockMeta
	metaOffset uint32
	cache      cache.Cache
	file       FileObject
	path       string
	fileSize   int64
	logger     logging.Logger

	// blockChecksums holds the XXH3 checksum of each block's raw bytes
	// as last read from disk, recorded the first time a block is
	// loaded and consulted on every subsequent cache hit for that
	// block. It exists purely to detect cache corruption; it is never
	// persisted and plays no part in the on-disk format.
	blockChecksums map[int]uint32
}

// ID returns the SST's identifier, as supplied to Build.
func (t *SSTable) ID() uint64 { return t.id }

// FirstKey returns the smallest key ever added to this table.
func (t *SSTable) FirstKey() []byte { return t.firstKey }

// LastKey returns the largest key ever added to this table.
func (t *SSTable) LastKey() []byte { return t.lastKey }

// Meta returns the table's block meta-index, in block order.
func (t *SSTable) Meta() []BlockMeta { return t.meta }

// MetaOffset returns the absolute byte offset where the meta-index
// begins within the file.
func (t *SSTable) MetaOffset() uint32 { return t.metaOffset }

// FileSize returns the total size, in bytes, of the persisted file.
func (t *SSTable) FileSize() int64 { return t.fileSize }

// OpenSSTable decodes an already-written SST file's trailer and
// meta-index, given its total size, into a readable handle. The block
// payload itself is read lazily, block by block, via file.
func OpenSSTable(id uint64, file FileObject, path string, fileSize int64, blockCache cache.Cache) (*SSTable, error) {
	if fileSize < 4 {
		return nil, block.ErrBadBlock
	}
	footer, err := file.ReadAt(path, fileSize-4, 4)
	if err != nil {
		return nil, err
	}
	metaOffset := encoding.DecodeFixed32(footer)

	metaLen := fileSize - 4 - int64(metaOffset)
	if metaLen < 0 {
		return nil, ErrBadMeta
	}
	metaBytes, err := file.ReadAt(path, int64(metaOffset), int(metaLen))
	if err != nil {
		return nil, err
	}
	metas, err := decodeMetaList(metaBytes)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, ErrEmptyTable
	}

	return &SSTable{
		id:             id,
		firstKey:       metas[0].FirstKey,
		lastKey:        metas[len(metas)-1].LastKey,
		meta:           metas,
		metaOffset:     metaOffset,
		cache:          blockCache,
		file:           file,
		path:           path,
		fileSize:       fileSize,
		logger:         logging.Discard,
		blockChecksums: make(map[int]uint32),
	}, nil
}

// SetLogger attaches a logger to an already-open table; messages are
// emitted under the [table] namespace. Passing nil restores the
// discard logger.
func (t *SSTable) SetLogger(l logging.Logger) {
	if logging.IsNil(l) {
		t.logger = logging.Discard
		return
	}
	t.logger = l
}

// blockLength returns the byte length on disk of the block at meta
// index i.
func (t *SSTable) blockLength(i int) int64 {
	if i+1 < len(t.meta) {
		return int64(t.meta[i+1].Offset) - int64(t.meta[i].Offset)
	}
	return int64(t.metaOffset) - int64(t.meta[i].Offset)
}

// blockIndexFor returns the index of the block whose key range may
// contain key: the last block whose FirstKey <= key.
func (t *SSTable) blockIndexFor(key []byte) int {
	lo, hi := 0, len(t.meta)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(t.meta[mid].FirstKey, key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

func (t *SSTable) loadBlock(i int) (block.Block, error) {
	if t.cache != nil {
		ck := cache.CacheKey{FileNumber: t.id, BlockOffset: uint64(t.meta[i].Offset)}
		if h := t.cache.Lookup(ck); h != nil {
			cached := h.Value()
			if want, ok := t.blockChecksums[i]; ok && checksum.XXH3Checksum(cached) == want {
				defer t.cache.Release(h)
				return block.NewBlockFromBytes(cached)
			}
			t.cache.Release(h)
			t.cache.Erase(ck)
			t.logger.Warnf(logging.NSTable+"sst %d: block %d failed cache checksum, refetching from disk", t.id, i)
		}
	}

	raw, err := t.file.ReadAt(t.path, int64(t.meta[i].Offset), int(t.blockLength(i)))
	if err != nil {
		return block.Block{}, err
	}
	blk, err := block.NewBlockFromBytes(raw)
	if err != nil {
		return block.Block{}, err
	}
	t.blockChecksums[i] = checksum.XXH3Checksum(raw)

	if t.cache != nil {
		ck := cache.CacheKey{FileNumber: t.id, BlockOffset: uint64(t.meta[i].Offset)}
		h := t.cache.Insert(ck, raw, uint64(len(raw)))
		t.cache.Release(h)
	}

	return blk, nil
}

// Get returns the value bound to key in this table, if present.
func (t *SSTable) Get(key []byte) ([]byte, error) {
	i := t.blockIndexFor(key)
	if i < 0 || bytes.Compare(key, t.meta[i].LastKey) > 0 {
		return nil, ErrKeyNotFound
	}

	blk, err := t.loadBlock(i)
	if err != nil {
		t.logger.Errorf(logging.NSTable+"sst %d: load block %d: %v", t.id, i, err)
		return nil, err
	}
	it, err := block.NewIterator(blk)
	if err != nil {
		return nil, err
	}
	if err := it.SeekToKey(key); err != nil {
		return nil, err
	}
	if !it.IsValid() || !bytes.Equal(it.Key(), key) {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), it.Value()...), nil
}
