package rtpbench

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/framesource"
	"github.com/bluenviron/rtpbench/pkg/latency"
	"github.com/bluenviron/rtpbench/pkg/pacer"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// LatencySender sends frames to an echo and measures how long they take to come back.
type LatencySender struct {
	Stack  stack.Stack
	Source *framesource.Source
	Stream stack.StreamConf
	FPS    float64
	// pause between opening the stream and sending the first frame.
	StartDelay time.Duration
	// maximum wait for outstanding frames after the last one was sent.
	Drain time.Duration
	Log   logrus.FieldLogger
}

// Run sends every frame once and returns the latency summary.
// When frames are lost, latencies are reported as zero.
func (s *LatencySender) Run(ctx context.Context) (latency.Summary, error) {
	log := logger.OrDefault(s.Log)

	rec := &latency.Recorder{}
	returned := make(chan struct{}, 1)

	se, err := s.Stack.NewSender(s.Stream, func(pkt *rtp.Packet, at time.Time) {
		if !pkt.Marker {
			return
		}

		if rec.Received(pkt.Timestamp, at) {
			select {
			case returned <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return latency.Summary{}, err
	}
	defer se.Close()

	if s.StartDelay > 0 {
		t := time.NewTimer(s.StartDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return latency.Summary{}, ctx.Err()
		}
	}

	log.WithFields(logrus.Fields{
		"frames": len(s.Source.Frames),
		"fps":    s.FPS,
	}).Info("sending")

	p := pacer.New(s.FPS)
	p.Start()

	for n, frame := range s.Source.Frames {
		err = p.Wait(ctx, uint64(n))
		if err != nil {
			return latency.Summary{}, err
		}

		ts := frameTimestamp(uint64(n), s.FPS)

		err = rec.Sent(ts, frame.Kind, time.Now())
		if err != nil {
			return latency.Summary{}, err
		}

		err = se.WriteAccessUnit(frame.NALUs, ts)
		if err != nil {
			return latency.Summary{}, fmt.Errorf("frame %d: %w", n, err)
		}
	}

	err = s.drain(ctx, rec, returned)
	if err != nil {
		return latency.Summary{}, err
	}

	sum := rec.Summary()

	if sum.Lost != 0 {
		log.WithFields(logrus.Fields{"lost": sum.Lost}).Warn("frames did not come back")
		sum.Intra = 0
		sum.Inter = 0
		sum.Avg = 0
	}

	return sum, nil
}

func (s *LatencySender) drain(ctx context.Context, rec *latency.Recorder, returned <-chan struct{}) error {
	t := time.NewTimer(s.Drain)
	defer t.Stop()

	for rec.Pending() != 0 {
		select {
		case <-returned:
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
