package annexb

import (
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/stretchr/testify/require"
)

var testStream = []byte{
	0x00, 0x00, 0x00, 0x01, 0x40, 0x01, 0x0c, // VPS
	0x00, 0x00, 0x00, 0x01, 0x42, 0x01, 0x01, // SPS
	0x00, 0x00, 0x00, 0x01, 0x44, 0x01, 0xc0, // PPS
	0x00, 0x00, 0x00, 0x01, 0x26, 0x01, 0xaf, 0x09, // IDR
	0x00, 0x00, 0x01, 0x02, 0x01, 0xd0, 0x01, // TRAIL_R
	0x00, 0x00, 0x01, 0x02, 0x01, 0xd2, // TRAIL_R
}

func TestNextStart(t *testing.T) {
	for _, ca := range []struct {
		name     string
		buf      []byte
		offset   int
		pos      int
		startLen int
	}{
		{"3 bytes", []byte{0, 0, 1, 5}, 0, 3, 3},
		{"4 bytes", []byte{0, 0, 0, 1, 5}, 0, 4, 4},
		{"leading zeros", []byte{0, 0, 0, 0, 1}, 0, 5, 5},
		{"offset", []byte{0, 0, 1, 5, 0, 0, 1, 6}, 3, 7, 3},
		{"single zero", []byte{5, 0, 1, 2}, 0, -1, 0},
		{"none", []byte{1, 2, 3}, 0, -1, 0},
		{"empty", nil, 0, -1, 0},
	} {
		t.Run(ca.name, func(t *testing.T) {
			pos, startLen := NextStart(ca.buf, ca.offset)
			require.Equal(t, ca.pos, pos)
			require.Equal(t, ca.startLen, startLen)
		})
	}
}

func TestSplit(t *testing.T) {
	nalus, err := Split(testStream)
	require.NoError(t, err)
	require.Equal(t, [][]byte{
		{0x40, 0x01, 0x0c},
		{0x42, 0x01, 0x01},
		{0x44, 0x01, 0xc0},
		{0x26, 0x01, 0xaf, 0x09},
		{0x02, 0x01, 0xd0, 0x01},
		{0x02, 0x01, 0xd2},
	}, nalus)
}

func TestSplitErrors(t *testing.T) {
	_, err := Split([]byte{1, 2, 3})
	require.EqualError(t, err, "start code not found")

	_, err = Split([]byte{0, 0, 1, 0, 0, 1, 5})
	require.EqualError(t, err, "empty NALU")
}

func TestScanner(t *testing.T) {
	s := &Scanner{Buf: testStream}

	var types []h265.NALUType
	for {
		nalu, ok := s.Next()
		if !ok {
			break
		}
		types = append(types, NALUType(nalu))
	}

	require.Equal(t, []h265.NALUType{
		h265.NALUType_VPS_NUT,
		h265.NALUType_SPS_NUT,
		h265.NALUType_PPS_NUT,
		h265.NALUType_IDR_W_RADL,
		1,
		1,
	}, types)

	_, ok := s.Next()
	require.False(t, ok)
}

func TestAccessUnitSizes(t *testing.T) {
	sizes, err := AccessUnitSizes(testStream)
	require.NoError(t, err)
	require.Equal(t, []int{29, 7, 6}, sizes)

	sum := 0
	for _, s := range sizes {
		sum += s
	}
	require.Equal(t, len(testStream), sum)
}

func TestAccessUnitSizesSlices(t *testing.T) {
	// second slice segment of the same picture has the first-slice flag cleared
	buf := []byte{
		0x00, 0x00, 0x01, 0x26, 0x01, 0xaf,
		0x00, 0x00, 0x01, 0x26, 0x01, 0x2f,
		0x00, 0x00, 0x01, 0x02, 0x01, 0xd0,
	}

	sizes, err := AccessUnitSizes(buf)
	require.NoError(t, err)
	require.Equal(t, []int{12, 6}, sizes)
}
