//go:build linux

package mmapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps a file into memory.
// Pages are populated in advance and read sequentially.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &File{data: []byte{}}, nil
	}

	if int64(int(size)) != size {
		return nil, fmt.Errorf("file %s is too big to be mapped", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_POPULATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	for _, advice := range []int{unix.MADV_SEQUENTIAL, unix.MADV_WILLNEED} {
		err = unix.Madvise(data, advice)
		if err != nil {
			unix.Munmap(data) //nolint:errcheck
			return nil, fmt.Errorf("madvise %s: %w", path, err)
		}
	}

	return &File{
		data:  data,
		unmap: unix.Munmap,
	}, nil
}
