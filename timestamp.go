package rtpbench

import (
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// frameTimestamp returns the RTP timestamp of the n-th frame.
func frameTimestamp(n uint64, fps float64) uint32 {
	if fps == float64(uint64(fps)) {
		return uint32(n * stack.ClockRate / uint64(fps))
	}
	return uint32(float64(n) * stack.ClockRate / fps)
}
