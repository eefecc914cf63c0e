// Package mmapfile maps input files into memory.
package mmapfile

// File is a read-only file mapped into memory.
type File struct {
	data  []byte
	unmap func([]byte) error
}

// Data returns the content of the file.
// It must not be used after Close().
func (f *File) Data() []byte {
	return f.data
}

// Len returns the size of the file.
func (f *File) Len() int {
	return len(f.data)
}

// Close releases the mapping.
func (f *File) Close() error {
	data := f.data
	f.data = nil

	if f.unmap == nil || data == nil {
		return nil
	}
	return f.unmap(data)
}
