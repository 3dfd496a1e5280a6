// Package vfs provides a thin filesystem abstraction over the OS, just
// wide enough for table.FileObject to persist and re-read SST files:
// create-and-write-once, and random-access read.
//
// Reference: RocksDB v10.7.5 include/rocksdb/file_system.h, trimmed to
// the Create/OpenRandomAccess slice this engine's storage layer needs
// (no sequential reads, no directory ops, no locking, no Direct I/O).
package vfs

import (
	"os"
)

// FS is the filesystem interface table.FileObject is adapted onto.
type FS interface {
	// Create creates a new writable file, truncating it if it already
	// exists.
	Create(name string) (WritableFile, error)

	// OpenRandomAccess opens an existing file for random access reading.
	OpenRandomAccess(name string) (RandomAccessFile, error)
}

// WritableFile is a file opened for writing.
type WritableFile interface {
	// Write appends p to the file.
	Write(p []byte) (int, error)
	// Sync flushes the file contents to stable storage.
	Sync() error
	// Close releases the file.
	Close() error
}

// RandomAccessFile is a file that can be read at any offset.
type RandomAccessFile interface {
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(p []byte, off int64) (int, error)
	// Close releases the file.
	Close() error
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the default OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osWritableFile{f: f}, nil
}

func (fs *osFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &osRandomAccessFile{f: f}, nil
}

// osWritableFile wraps os.File for WritableFile.
type osWritableFile struct {
	f *os.File
}

func (wf *osWritableFile) Write(p []byte) (int, error) {
	return wf.f.Write(p)
}

func (wf *osWritableFile) Close() error {
	return wf.f.Close()
}

func (wf *osWritableFile) Sync() error {
	return wf.f.Sync()
}

// osRandomAccessFile wraps os.File for RandomAccessFile.
type osRandomAccessFile struct {
	f *os.File
}

func (rf *osRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	return rf.f.ReadAt(p, off)
}

func (rf *osRandomAccessFile) Close() error {
	return rf.f.Close()
}
