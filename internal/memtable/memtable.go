// memtable.go implements the write-path in-memory buffer that sits in
// front of SST flush.
//
// A Memtable wraps a SkipList with identity, an approximate byte-size
// estimator, and an optional write-ahead-log collaborator. Durability
// (actually persisting and replaying the WAL) is the caller's concern;
// the Memtable only forwards Sync calls to whatever Wal it was given.
//
// Reference: RocksDB v10.7.5 db/memtable.h/.cc, trimmed to the
// single-version (no sequence numbers, no range tombstones) case this
// engine's core targets.
package memtable

import (
	"errors"
	"sync/atomic"

	"github.com/aalhour/lsmkv/internal/logging"
)

// ErrEmptyKey is returned by Put when the key is zero-length.
var ErrEmptyKey = errors.New("memtable: key must not be empty")

// Wal is the external write-ahead-log collaborator a Memtable may be
// given at construction. A nil Wal means writes are not logged; Put
// still succeeds and SyncWal becomes a no-op.
type Wal interface {
	// AddRecord appends one logical record (e.g. an encoded put) to the
	// log and returns the number of bytes written.
	AddRecord(data []byte) (int, error)
	// Sync flushes the log to stable storage.
	Sync() error
}

// Memtable is a thread-safe, ordered key/value buffer. The zero value
// is not usable; construct with New.
type Memtable struct {
	id     uint64
	skl    *SkipList
	wal    Wal
	size   atomic.Uint64
	logger logging.Logger
}

// New creates an empty memtable identified by id. wal may be nil.
func New(id uint64, wal Wal) *Memtable {
	return &Memtable{
		id:     id,
		skl:    NewSkipList(),
		wal:    wal,
		logger: logging.Discard,
	}
}

// SetLogger attaches a logger to the memtable; messages are emitted
// under the [memtable] namespace. Passing nil restores the discard
// logger.
func (m *Memtable) SetLogger(l logging.Logger) {
	if logging.IsNil(l) {
		m.logger = logging.Discard
		return
	}
	m.logger = l
}

// ID returns the memtable's identity.
func (m *Memtable) ID() uint64 {
	return m.id
}

// ApproximateSize returns the running estimate of bytes held, a
// monotonically increasing upper bound rather than a precise count:
// overwrites add to the estimate again instead of netting out the
// previous entry's size.
func (m *Memtable) ApproximateSize() uint64 {
	return m.size.Load()
}

// IsEmpty reports whether the memtable holds any entries.
func (m *Memtable) IsEmpty() bool {
	return m.skl.Count() == 0
}

// Put upserts key to value. Every call -- including one that writes
// the same value already stored for key -- bumps the approximate size
// estimate by len(key)+len(value); the estimator is deliberately not
// decremented on overwrite (see ApproximateSize).
func (m *Memtable) Put(key, value []byte) error {
	if len(key) == 0 {
		m.logger.Errorf(logging.NSMemtable+"memtable %d: rejected empty key", m.id)
		return ErrEmptyKey
	}
	m.skl.Upsert(key, value)
	m.size.Add(uint64(len(key) + len(value)))
	return nil
}

// PutBatch applies puts in order. It is not atomic: a failure partway
// through leaves earlier puts visible. Batched WAL framing and
// all-or-nothing semantics are left to the external collaborator that
// owns the Wal, per this package's scope.
func (m *Memtable) PutBatch(keys, values [][]byte) error {
	if len(keys) != len(values) {
		return errors.New("memtable: keys and values length mismatch")
	}
	for i := range keys {
		if err := m.Put(keys[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value bound to key, if any.
func (m *Memtable) Get(key []byte) ([]byte, bool) {
	return m.skl.Get(key)
}

// Scan returns an iterator positioned at the first entry satisfying
// [lower, upper), per the bound tags each carries (Unbounded,
// Included, or Excluded). The iterator observes live inserts: see
// Iterator.
func (m *Memtable) Scan(lower, upper Bound) *Iterator {
	it := &Iterator{skl: m.skl, upper: upper, frontier: lower}
	it.seekToLower()
	return it
}

// SyncWal flushes the attached write-ahead log, or does nothing if no
// Wal was attached at construction.
func (m *Memtable) SyncWal() error {
	if m.wal == nil {
		return nil
	}
	if err := m.wal.Sync(); err != nil {
		m.logger.Errorf(logging.NSMemtable+"memtable %d: wal sync failed: %v", m.id, err)
		return err
	}
	return nil
}

// LogRecord forwards a pre-encoded record to the attached Wal, or is a
// no-op if there is none. Callers that want every Put durably logged
// should call this before or after Put with their own wire encoding;
// the Memtable itself does not dictate a log record format.
func (m *Memtable) LogRecord(data []byte) error {
	if m.wal == nil {
		return nil
	}
	_, err := m.wal.AddRecord(data)
	if err != nil {
		m.logger.Errorf(logging.NSMemtable+"memtable %d: wal append failed: %v", m.id, err)
	}
	return err
}
