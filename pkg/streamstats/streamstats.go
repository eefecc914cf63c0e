// Package streamstats collects statistics about received RTP streams.
package streamstats

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluenviron/gortsplib/v5/pkg/format/rtph265"
	"github.com/pion/rtp"
)

// Snapshot contains the statistics of one or more streams.
type Snapshot struct {
	Packets      uint64
	Bytes        uint64
	Frames       uint64
	FrameBytes   uint64
	Lost         uint64
	DecodeErrors uint64
	First        time.Time
	Last         time.Time

	// frames of each stream, filled by Merge.
	StreamFrames []uint64
}

// Duration returns the time between the first and the last packet.
func (s Snapshot) Duration() time.Duration {
	if s.First.IsZero() {
		return 0
	}
	return s.Last.Sub(s.First)
}

// Merge merges snapshots of multiple streams.
// Counters are summed; the interval spans from the earliest first packet
// to the latest last packet.
func Merge(snapshots ...Snapshot) Snapshot {
	var ret Snapshot

	for _, s := range snapshots {
		ret.Packets += s.Packets
		ret.Bytes += s.Bytes
		ret.Frames += s.Frames
		ret.FrameBytes += s.FrameBytes
		ret.Lost += s.Lost
		ret.DecodeErrors += s.DecodeErrors
		ret.StreamFrames = append(ret.StreamFrames, s.Frames)

		if !s.First.IsZero() && (ret.First.IsZero() || s.First.Before(ret.First)) {
			ret.First = s.First
		}
		if s.Last.After(ret.Last) {
			ret.Last = s.Last
		}
	}

	return ret
}

// Stream collects statistics about a single RTP stream.
// Counters can be read while packets are being processed.
type Stream struct {
	// decode frames with the RTP/H265 depacketizer
	// instead of counting marker bits.
	Decode bool

	packets      atomic.Uint64
	bytes        atomic.Uint64
	frames       atomic.Uint64
	frameBytes   atomic.Uint64
	lost         atomic.Uint64
	decodeErrors atomic.Uint64
	first        atomic.Int64
	last         atomic.Int64

	mutex        sync.Mutex
	lossDetector LossDetector
	decoder      *rtph265.Decoder
	frameSize    uint64
}

// Initialize initializes Stream.
func (s *Stream) Initialize() error {
	if s.Decode {
		s.decoder = &rtph265.Decoder{}
		err := s.decoder.Init()
		if err != nil {
			return err
		}
	}
	return nil
}

// ProcessPacket processes a RTP packet received at the given time.
func (s *Stream) ProcessPacket(pkt *rtp.Packet, at time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := at.UnixNano()
	s.first.CompareAndSwap(0, now)
	s.last.Store(now)

	s.packets.Add(1)
	s.bytes.Add(uint64(len(pkt.Payload)))

	lost := s.lossDetector.Process(pkt)
	if lost != 0 {
		s.lost.Add(lost)
	}

	if s.decoder != nil {
		s.decode(pkt)
		return
	}

	s.frameSize += uint64(len(pkt.Payload))
	if pkt.Marker {
		s.frames.Add(1)
		s.frameBytes.Add(s.frameSize)
		s.frameSize = 0
	}
}

func (s *Stream) decode(pkt *rtp.Packet) {
	au, err := s.decoder.Decode(pkt)
	if err != nil {
		if !errors.Is(err, rtph265.ErrMorePacketsNeeded) {
			s.decodeErrors.Add(1)
		}
		return
	}

	var size uint64
	for _, nalu := range au {
		size += uint64(len(nalu))
	}

	s.frames.Add(1)
	s.frameBytes.Add(size)
}

// Packets returns the number of received packets.
func (s *Stream) Packets() uint64 {
	return s.packets.Load()
}

// Frames returns the number of received frames.
func (s *Stream) Frames() uint64 {
	return s.frames.Load()
}

// Snapshot returns the current statistics.
func (s *Stream) Snapshot() Snapshot {
	ret := Snapshot{
		Packets:      s.packets.Load(),
		Bytes:        s.bytes.Load(),
		Frames:       s.frames.Load(),
		FrameBytes:   s.frameBytes.Load(),
		Lost:         s.lost.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}

	if v := s.first.Load(); v != 0 {
		ret.First = time.Unix(0, v)
		ret.Last = time.Unix(0, s.last.Load())
	}

	return ret
}
