package framesource

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpbench/pkg/chunkfile"
	"github.com/bluenviron/rtpbench/pkg/latency"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

var (
	testIntra = []byte{
		0x00, 0x00, 0x00, 0x01, 0x40, 0x01, 0x0c,
		0x00, 0x00, 0x00, 0x01, 0x42, 0x01, 0x01,
		0x00, 0x00, 0x00, 0x01, 0x44, 0x01, 0xc0,
		0x00, 0x00, 0x00, 0x01, 0x26, 0x01, 0xaf, 0x09,
	}
	testInter = []byte{0x00, 0x00, 0x01, 0x02, 0x01, 0xd0, 0x01}
)

func writeFile(t *testing.T, name string, content []byte) string {
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, content, 0o644)
	require.NoError(t, err)
	return path
}

func checkSource(t *testing.T, s *Source) {
	require.Equal(t, 2, len(s.Frames))
	require.Equal(t, testIntra, s.Frames[0].Data)
	require.Equal(t, 4, len(s.Frames[0].NALUs))
	require.Equal(t, latency.KindIntra, s.Frames[0].Kind)
	require.Equal(t, testInter, s.Frames[1].Data)
	require.Equal(t, [][]byte{{0x02, 0x01, 0xd0, 0x01}}, s.Frames[1].NALUs)
	require.Equal(t, latency.KindInter, s.Frames[1].Kind)
	require.Equal(t, uint64(len(testIntra)+len(testInter)), s.Bytes())
}

func TestOpenSidecar(t *testing.T) {
	path := writeFile(t, "in.hevc", append(append([]byte{}, testIntra...), testInter...))

	err := chunkfile.Write(chunkfile.FileName(path), []uint64{uint64(len(testIntra)), uint64(len(testInter))})
	require.NoError(t, err)

	s, err := Open(path, LayoutSidecar, stack.FormatH265)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	checkSource(t, s)
}

func TestOpenPrefixed(t *testing.T) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(testIntra)))
	buf = append(buf, testIntra...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(testInter)))
	buf = append(buf, testInter...)

	s, err := Open(writeFile(t, "in.bin", buf), LayoutPrefixed, stack.FormatH265)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	checkSource(t, s)
}

func TestOpenAnnexB(t *testing.T) {
	path := writeFile(t, "in.hevc", append(append([]byte{}, testIntra...), testInter...))

	s, err := Open(path, LayoutAnnexB, stack.FormatH265)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	checkSource(t, s)
}

func TestOpenErrors(t *testing.T) {
	path := writeFile(t, "empty.hevc", nil)

	_, err := Open(path, LayoutAnnexB, stack.FormatH265)
	require.EqualError(t, err, "no frames found in "+path)

	path = writeFile(t, "in.hevc", testIntra)
	_, err = Open(path, LayoutSidecar, stack.FormatH265)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("prefixed")
	require.NoError(t, err)
	require.Equal(t, LayoutPrefixed, l)
	require.Equal(t, "prefixed", l.String())

	_, err = ParseLayout("mkv")
	require.EqualError(t, err, "invalid layout 'mkv'")
}

func TestOpenAnnexBH266(t *testing.T) {
	path := writeFile(t, "in.vvc", testIntra)

	_, err := Open(path, LayoutAnnexB, stack.FormatH266)
	require.EqualError(t, err, "layout annexb supports only H265")
}
