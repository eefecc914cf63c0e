package chunkfile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	for _, ca := range []struct {
		in  string
		out string
	}{
		{"video.hevc", "video.chunks"},
		{"video.yuv", "video.chunks"},
		{"dir.d/video", "dir.d/video.chunks"},
		{"/tmp/a.b.hevc", "/tmp/a.b.chunks"},
	} {
		t.Run(ca.in, func(t *testing.T) {
			require.Equal(t, ca.out, FileName(ca.in))
		})
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.chunks")

	err := Write(path, []uint64{1000, 20, 1 << 40})
	require.NoError(t, err)

	byts, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 24, len(byts))
	require.Equal(t, uint64(20), binary.LittleEndian.Uint64(byts[8:]))

	sizes, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, []uint64{1000, 20, 1 << 40}, sizes)
}

func TestReadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.chunks")

	err := os.WriteFile(path, []byte{1, 2, 3}, 0o644)
	require.NoError(t, err)

	_, err = Read(path)
	require.EqualError(t, err, "chunk file "+path+" has invalid size 3")
}

func TestWriterCount(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Append(5))
	require.NoError(t, w.Append(6))
	require.Equal(t, 2, w.Count())
	require.Equal(t, 0, buf.Len())

	require.NoError(t, w.Flush())
	require.Equal(t, 16, buf.Len())
}

func TestSplitSidecar(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7}

	frames, err := SplitSidecar(data, []uint64{3, 0, 4})
	require.NoError(t, err)
	require.Equal(t, [][]byte{{1, 2, 3}, {4, 5, 6, 7}}, frames)

	_, err = SplitSidecar(data, []uint64{3, 5})
	require.EqualError(t, err, "chunk sizes sum to 8 bytes, but the file contains 7")
}

func TestSplitSidecarOverflow(t *testing.T) {
	data := make([]byte, 16)

	_, err := SplitSidecar(data, []uint64{^uint64(0), 2})
	require.EqualError(t, err, "chunk sizes sum to 18446744073709551615 bytes, but the file contains 16")

	_, err = SplitSidecar(data, []uint64{4, ^uint64(0) - 3, 8})
	require.EqualError(t, err, "chunk sizes sum to 18446744073709551615 bytes, but the file contains 16")
}

func TestSplitPrefixed(t *testing.T) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint64(buf, 2)
	buf = append(buf, 0xaa, 0xbb)
	buf = binary.LittleEndian.AppendUint64(buf, 1)
	buf = append(buf, 0xcc)

	frames, err := SplitPrefixed(buf)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0xaa, 0xbb}, {0xcc}}, frames)

	_, err = SplitPrefixed(buf[:len(buf)-1])
	require.Error(t, err)

	_, err = SplitPrefixed(buf[:4])
	require.EqualError(t, err, "truncated size prefix at offset 0")
}
