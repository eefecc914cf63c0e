// Package latency measures the round-trip latency of frames.
package latency

import (
	"sync"
	"time"

	"github.com/bluenviron/rtpbench/pkg/liberrors"
)

type inflightFrame struct {
	kind FrameKind
	sent time.Time
}

// Summary contains the latency statistics of a run.
type Summary struct {
	// Frames is the number of completed intra and inter frames.
	Frames      int
	IntraFrames int
	InterFrames int
	// Lost is the number of frames that never came back.
	Lost int

	Intra time.Duration
	Inter time.Duration
	Avg   time.Duration
}

// Recorder pairs sent frames with returned ones by RTP timestamp.
type Recorder struct {
	mutex    sync.Mutex
	inflight map[uint32]inflightFrame

	intraFrames int
	interFrames int
	intraTotal  time.Duration
	interTotal  time.Duration
}

// Sent records the send time of a frame.
func (r *Recorder) Sent(ts uint32, kind FrameKind, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.inflight == nil {
		r.inflight = make(map[uint32]inflightFrame)
	}

	if _, ok := r.inflight[ts]; ok {
		return liberrors.ErrDuplicateTimestamp{Timestamp: ts}
	}

	r.inflight[ts] = inflightFrame{kind: kind, sent: at}
	return nil
}

// Received completes the frame with the given timestamp.
// It returns false when no frame with that timestamp is in flight.
func (r *Recorder) Received(ts uint32, at time.Time) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	f, ok := r.inflight[ts]
	if !ok {
		return false
	}
	delete(r.inflight, ts)

	diff := at.Sub(f.sent)

	switch f.kind {
	case KindIntra:
		r.intraFrames++
		r.intraTotal += diff

	case KindInter:
		r.interFrames++
		r.interTotal += diff
	}

	return true
}

// Pending returns the number of frames in flight.
func (r *Recorder) Pending() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.inflight)
}

// Summary returns the statistics collected so far.
func (r *Recorder) Summary() Summary {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s := Summary{
		Frames:      r.intraFrames + r.interFrames,
		IntraFrames: r.intraFrames,
		InterFrames: r.interFrames,
		Lost:        len(r.inflight),
	}

	if r.intraFrames != 0 {
		s.Intra = r.intraTotal / time.Duration(r.intraFrames)
	}
	if r.interFrames != 0 {
		s.Inter = r.interTotal / time.Duration(r.interFrames)
	}
	if s.Frames != 0 {
		s.Avg = (r.intraTotal + r.interTotal) / time.Duration(s.Frames)
	}

	return s
}
