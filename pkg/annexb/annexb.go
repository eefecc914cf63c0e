// Package annexb contains functions to scan H265 elementary streams in Annex-B format.
package annexb

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
)

// NextStart searches buf for a start code, beginning at offset.
// It returns the position of the first byte after the start code
// and the length of the start code, including any leading zero bytes.
// When no start code is found, it returns -1, 0.
func NextStart(buf []byte, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}

	zeros := 0

	for pos := offset; pos < len(buf); pos++ {
		switch {
		case buf[pos] == 0:
			zeros++

		case buf[pos] == 1 && zeros >= 2:
			return pos + 1, zeros + 1

		default:
			zeros = 0
		}
	}

	return -1, 0
}

// Split splits an Annex-B buffer into NAL units, without start codes.
func Split(buf []byte) ([][]byte, error) {
	start, _ := NextStart(buf, 0)
	if start < 0 {
		return nil, fmt.Errorf("start code not found")
	}

	var ret [][]byte

	for {
		next, startLen := NextStart(buf, start)

		end := len(buf)
		if next >= 0 {
			end = next - startLen
		}

		if end <= start {
			return nil, fmt.Errorf("empty NALU")
		}

		ret = append(ret, buf[start:end])

		if next < 0 {
			return ret, nil
		}

		start = next
	}
}

// NALUType returns the type of a H265 NALU.
func NALUType(nalu []byte) h265.NALUType {
	if len(nalu) == 0 {
		return 0
	}
	return h265.NALUType((nalu[0] >> 1) & 0b111111)
}

// IsVCL reports whether the NALU contains slice data.
func IsVCL(nalu []byte) bool {
	return len(nalu) != 0 && NALUType(nalu) < 32
}

const naluTypePrefixSEI h265.NALUType = 39

func firstSliceSegmentInPic(nalu []byte) bool {
	// the flag is the first bit after the 2-byte NALU header
	return len(nalu) > 2 && (nalu[2]&0x80) != 0
}

func startsAccessUnit(nalu []byte) bool {
	switch NALUType(nalu) {
	case h265.NALUType_AUD_NUT, h265.NALUType_VPS_NUT, h265.NALUType_SPS_NUT,
		h265.NALUType_PPS_NUT, naluTypePrefixSEI:
		return true
	}

	return IsVCL(nalu) && firstSliceSegmentInPic(nalu)
}

// AccessUnitSizes groups the NAL units of buf into access units
// and returns the size of each access unit, start codes included.
// Bytes before the first start code are attributed to the first access unit.
func AccessUnitSizes(buf []byte) ([]int, error) {
	pos, startLen := NextStart(buf, 0)
	if pos < 0 {
		return nil, fmt.Errorf("start code not found")
	}

	var sizes []int
	auStart := 0
	vclSeen := false

	for pos >= 0 {
		naluStart := pos - startLen
		next, nextLen := NextStart(buf, pos)

		end := len(buf)
		if next >= 0 {
			end = next - nextLen
		}
		nalu := buf[pos:end]

		if vclSeen && startsAccessUnit(nalu) {
			sizes = append(sizes, naluStart-auStart)
			auStart = naluStart
			vclSeen = false
		}

		if IsVCL(nalu) {
			vclSeen = true
		}

		pos, startLen = next, nextLen
	}

	sizes = append(sizes, len(buf)-auStart)

	return sizes, nil
}
