package streamstats

import (
	"github.com/pion/rtp"
)

// LossDetector detects lost packets by looking at sequence number gaps.
type LossDetector struct {
	initialized    bool
	expectedSeqNum uint16
}

// Process processes a RTP packet.
// It returns the number of packets lost between the previous one and this one.
func (d *LossDetector) Process(pkt *rtp.Packet) uint64 {
	if !d.initialized {
		d.initialized = true
		d.expectedSeqNum = pkt.SequenceNumber + 1
		return 0
	}

	diff := pkt.SequenceNumber - d.expectedSeqNum

	// late or duplicated packet
	if diff >= 0x8000 {
		return 0
	}

	d.expectedSeqNum = pkt.SequenceNumber + 1
	return uint64(diff)
}
