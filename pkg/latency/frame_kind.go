package latency

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/bluenviron/rtpbench/pkg/annexb"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// FrameKind is the kind of a frame.
type FrameKind int

// frame kinds.
const (
	KindOther FrameKind = iota
	KindIntra
	KindInter
)

var frameKindLabels = map[FrameKind]string{
	KindOther: "other",
	KindIntra: "intra",
	KindInter: "inter",
}

// String implements fmt.Stringer.
func (k FrameKind) String() string {
	if l, ok := frameKindLabels[k]; ok {
		return l
	}
	return "unknown"
}

const naluTypeBLAWLP h265.NALUType = 16

// H266 NALU types
const (
	h266IDRWRADL = 7
	h266GDR      = 10
	h266RASL     = 3
)

// Classify returns the kind of an access unit, given its NAL units.
// The kind is decided by the first slice of the access unit:
// random access points are intra frames, trailing and leading pictures are inter frames.
func Classify(format stack.Format, nalus [][]byte) FrameKind {
	if format == stack.FormatH266 {
		return classifyH266(nalus)
	}
	return classifyH265(nalus)
}

func classifyH265(nalus [][]byte) FrameKind {
	for _, nalu := range nalus {
		if !annexb.IsVCL(nalu) {
			continue
		}

		typ := annexb.NALUType(nalu)

		switch {
		case typ >= naluTypeBLAWLP && typ <= h265.NALUType_CRA_NUT:
			return KindIntra

		case typ < 10:
			return KindInter

		default:
			return KindOther
		}
	}

	return KindOther
}

func classifyH266(nalus [][]byte) FrameKind {
	for _, nalu := range nalus {
		if len(nalu) < 2 {
			continue
		}

		typ := nalu[1] >> 3

		// types above 11 are reserved VCL or non-VCL
		if typ > 11 {
			continue
		}

		switch {
		case typ >= h266IDRWRADL && typ <= h266GDR:
			return KindIntra

		case typ <= h266RASL:
			return KindInter

		default:
			return KindOther
		}
	}

	return KindOther
}
