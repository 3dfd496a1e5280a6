package memtable

// Iterator walks a Memtable's key range in ascending order. Unlike a
// snapshot iterator, it does not pin the state of the underlying
// SkipList at construction time: reaching the end of the currently
// visible range does not permanently terminate it. Every Next() call
// re-queries the SkipList for the first entry strictly past the last
// key this iterator has ever yielded (its "frontier"), so a key
// inserted into the Memtable after the iterator went invalid is still
// observed by a later Next() call, so long as it falls within
// [lower, upper).
//
// An Iterator borrows the SkipList it was created over; that SkipList
// (and therefore the Memtable owning it) must outlive the Iterator.
type Iterator struct {
	skl   *SkipList
	upper Bound

	// frontier is the bound marking the smallest key this iterator is
	// still allowed to (re)discover; it starts as the scan's lower
	// bound (which may be Unbounded) and is advanced to Excluded(lastKey) every time a valid entry is
	// produced, and left untouched while invalid so that Next() keeps
	// retrying from the same point.
	frontier Bound

	key   []byte
	value []byte
	valid bool
}

func successorTarget(key []byte) []byte {
	target := make([]byte, len(key)+1)
	copy(target, key)
	return target
}

// seekToLower positions the iterator at the first entry satisfying the
// scan's lower bound (and, transitively, the upper bound), or leaves
// it invalid if none exists yet.
func (it *Iterator) seekToLower() {
	it.advance()
}

// advance is the shared positioning step used by both the initial seek
// and every subsequent Next() call.
func (it *Iterator) advance() {
	var n *node
	switch it.frontier.Kind {
	case Unbounded:
		n = it.skl.first()
	case Included:
		n = it.skl.findGreaterOrEqual(it.frontier.Key)
	case Excluded:
		n = it.skl.findGreaterOrEqual(successorTarget(it.frontier.Key))
	}

	if n != nil && satisfiesUpper(it.upper, n.key) {
		it.key = append(it.key[:0], n.key...)
		v := n.value.Load()
		it.value = append(it.value[:0], (*v)...)
		it.valid = true
		it.frontier = ExcludedBound(it.key)
		return
	}

	it.valid = false
	it.key = nil
	it.value = nil
	// it.frontier is intentionally left as-is: the next Next() call
	// retries from the same boundary, so a key inserted after this
	// point but still within range will be discovered.
}

// IsValid reports whether the iterator is currently positioned at an
// entry.
func (it *Iterator) IsValid() bool {
	return it.valid
}

// Key returns the current key. Only meaningful while IsValid().
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the current value. Only meaningful while IsValid().
func (it *Iterator) Value() []byte {
	return it.value
}

// Next advances to the next entry in range, or to the first entry to
// appear in range if the iterator was invalid. See the Iterator doc
// comment for the live-insert guarantee this implements.
func (it *Iterator) Next() {
	it.advance()
}
