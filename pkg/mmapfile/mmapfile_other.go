//go:build !linux

package mmapfile

import (
	"os"
)

// Open reads a file into memory.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &File{data: data}, nil
}
