// Package chunkfile reads and writes chunk-size sidecar files.
//
// A sidecar file is a flat sequence of little-endian uint64 values,
// one for each encoded frame of the elementary stream it describes.
package chunkfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bluenviron/rtpbench/pkg/liberrors"
)

// Ext is the extension of sidecar files.
const Ext = ".chunks"

// FileName returns the sidecar file name of an input or output file.
func FileName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + Ext
}

// Read reads a sidecar file.
func Read(path string) ([]uint64, error) {
	byts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if (len(byts) % 8) != 0 {
		return nil, liberrors.ErrChunkFileInvalid{Path: path, Size: len(byts)}
	}

	sizes := make([]uint64, len(byts)/8)
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint64(byts[i*8:])
	}

	return sizes, nil
}

// Write writes a sidecar file.
func Write(path string, sizes []uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := NewWriter(f)

	for _, size := range sizes {
		err = w.Append(size)
		if err != nil {
			f.Close() //nolint:errcheck
			return err
		}
	}

	err = w.Flush()
	if err != nil {
		f.Close() //nolint:errcheck
		return err
	}

	return f.Close()
}

// Writer writes frame sizes incrementally.
type Writer struct {
	bw  *bufio.Writer
	buf [8]byte
	n   int
}

// NewWriter allocates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Append appends the size of a frame.
func (w *Writer) Append(size uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:], size)
	_, err := w.bw.Write(w.buf[:])
	if err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of appended sizes.
func (w *Writer) Count() int {
	return w.n
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// SplitSidecar slices an elementary stream by the sizes of a sidecar file.
func SplitSidecar(data []byte, sizes []uint64) ([][]byte, error) {
	l := uint64(len(data))
	frames := make([][]byte, 0, len(sizes))
	pos := uint64(0)

	for _, size := range sizes {
		if size > (l - pos) {
			return nil, liberrors.ErrChunkSizesExceedFile{Sum: sumSizes(sizes), Len: l}
		}

		if size != 0 {
			frames = append(frames, data[pos:pos+size])
		}
		pos += size
	}

	return frames, nil
}

// sumSizes returns the sum of sizes, saturated at math.MaxUint64.
func sumSizes(sizes []uint64) uint64 {
	var sum uint64
	for _, size := range sizes {
		if size > (math.MaxUint64 - sum) {
			return math.MaxUint64
		}
		sum += size
	}
	return sum
}

// SplitPrefixed slices a stream in which every frame is preceded
// by its size, encoded as a little-endian uint64.
func SplitPrefixed(data []byte) ([][]byte, error) {
	var frames [][]byte
	pos := uint64(0)
	l := uint64(len(data))

	for pos < l {
		if (l - pos) < 8 {
			return nil, fmt.Errorf("truncated size prefix at offset %d", pos)
		}

		size := binary.LittleEndian.Uint64(data[pos:])
		pos += 8

		if size > (l - pos) {
			return nil, liberrors.ErrChunkSizesExceedFile{Sum: pos + size, Len: l}
		}

		if size != 0 {
			frames = append(frames, data[pos:pos+size])
		}
		pos += size
	}

	return frames, nil
}
