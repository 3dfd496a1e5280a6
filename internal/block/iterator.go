package block

import "bytes"

// Iterator walks a Block's entries in sorted order, forward or
// reverse. An Iterator is invalid iff its current key is empty -- all
// real keys are non-empty, so this coincides with "positioned before
// the first entry / after the last entry / over an empty block".
//
// Reference: RocksDB v10.7.5 table/block_based/block.cc Iter, adapted
// to binary-search directly against offsets (no restart-point index)
// and to rematerialize keys against a single first-key baseline.
type Iterator struct {
	block    Block
	data     []byte
	offsets  []uint16
	firstKey []byte

	idx     int
	reverse bool

	key        []byte
	valueBegin int
	valueEnd   int
}

// NewIterator returns a forward iterator over block, positioned
// before the first entry; call SeekToFirst, SeekToLast, or SeekToKey
// to position it.
func NewIterator(block Block) (*Iterator, error) {
	data, offsets, err := block.offsetsTable()
	if err != nil {
		return nil, err
	}
	var firstKey []byte
	if len(offsets) > 0 {
		k, _, _, _, err := entryAt(data, nil, int(offsets[0]))
		if err != nil {
			return nil, err
		}
		firstKey = k
	}
	return &Iterator{block: block, data: data, offsets: offsets, firstKey: firstKey, idx: -1}, nil
}

// NewReverseIterator returns an iterator whose Next moves toward
// smaller keys, otherwise identical to NewIterator.
func NewReverseIterator(block Block) (*Iterator, error) {
	it, err := NewIterator(block)
	if err != nil {
		return nil, err
	}
	it.reverse = true
	return it, nil
}

// IsValid reports whether the iterator is positioned at an entry.
func (it *Iterator) IsValid() bool {
	return len(it.key) > 0
}

// Key returns the current entry's key. Only meaningful while valid.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns a slice view of the current entry's value within the
// block's own backing array, without copying.
func (it *Iterator) Value() []byte {
	return it.data[it.valueBegin:it.valueEnd]
}

func (it *Iterator) invalidate() {
	it.key = nil
	it.valueBegin, it.valueEnd = 0, 0
}

func (it *Iterator) materialize(idx int) error {
	key, vb, ve, _, err := entryAt(it.data, it.firstKey, int(it.offsets[idx]))
	if err != nil {
		return err
	}
	it.idx = idx
	it.key = key
	it.valueBegin, it.valueEnd = vb, ve
	return nil
}

// SeekToFirst positions the iterator at the block's smallest key, or
// invalidates it if the block is empty (which never happens for a
// finalized Block, but an Iterator over a zero-value Block may still
// reach this path).
func (it *Iterator) SeekToFirst() error {
	if len(it.offsets) == 0 {
		it.invalidate()
		return nil
	}
	return it.materialize(0)
}

// SeekToLast positions the iterator at the block's largest key.
func (it *Iterator) SeekToLast() error {
	if len(it.offsets) == 0 {
		it.invalidate()
		return nil
	}
	return it.materialize(len(it.offsets) - 1)
}

// keyAt materializes just the key at idx, for use during binary
// search where the value range is not needed yet.
func (it *Iterator) keyAt(idx int) ([]byte, error) {
	key, _, _, _, err := entryAt(it.data, it.firstKey, int(it.offsets[idx]))
	return key, err
}

// SeekToKey positions the iterator at the first entry whose key is
// greater than or equal to target, invalidating it if no such entry
// exists. Uses binary search over the offset table.
func (it *Iterator) SeekToKey(target []byte) error {
	lo, hi := 0, len(it.offsets)
	for lo < hi {
		mid := (lo + hi) / 2
		k, err := it.keyAt(mid)
		if err != nil {
			return err
		}
		if bytes.Compare(k, target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == len(it.offsets) {
		it.invalidate()
		return nil
	}
	return it.materialize(lo)
}

// Next advances the iterator one position: forward iterators move to
// the next-greater key, reverse iterators to the next-smaller key.
// Advancing past either end invalidates the iterator.
func (it *Iterator) Next() error {
	if it.reverse {
		if it.idx-1 < 0 {
			it.invalidate()
			return nil
		}
		return it.materialize(it.idx - 1)
	}
	if it.idx+1 >= len(it.offsets) {
		it.invalidate()
		return nil
	}
	return it.materialize(it.idx + 1)
}
