// file_object.go adapts vfs.FS to the append-only create/read-at-offset
// abstraction the SST builder and reader actually need, per this
// package's external collaborator boundary with storage.
package table

import "github.com/aalhour/lsmkv/internal/vfs"

// FileObject is an append-only byte sink with read-at-offset lookup.
// Durability past Create's return is the implementation's concern,
// not this package's.
type FileObject interface {
	// Create writes data to path in full, creating or truncating the
	// file as needed.
	Create(path string, data []byte) error
	// ReadAt returns length bytes read from path starting at offset.
	ReadAt(path string, offset int64, length int) ([]byte, error)
}

// vfsFileObject implements FileObject atop a vfs.FS, the package's
// own filesystem abstraction.
type vfsFileObject struct {
	fs vfs.FS
}

// NewVfsFileObject adapts fs to the FileObject interface.
func NewVfsFileObject(fs vfs.FS) FileObject {
	return &vfsFileObject{fs: fs}
}

func (o *vfsFileObject) Create(path string, data []byte) error {
	f, err := o.fs.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (o *vfsFileObject) ReadAt(path string, offset int64, length int) ([]byte, error) {
	f, err := o.fs.OpenRandomAccess(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}
