package rtpbench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/framesource"
	"github.com/bluenviron/rtpbench/pkg/pacer"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// SendStats are the totals of a throughput sender.
type SendStats struct {
	Streams int
	Frames  uint64
	Bytes   uint64
	// span between the earliest stream start and the latest stream end.
	Duration time.Duration
}

// Sender replays an elementary stream on one or more streams at a fixed frame rate.
type Sender struct {
	Stack   stack.Stack
	Source  *framesource.Source
	Streams []stack.StreamConf
	FPS     float64
	// number of times the input is replayed.
	Rounds int
	// pause between opening streams and sending the first frame.
	StartDelay time.Duration
	Log        logrus.FieldLogger
}

type streamSpan struct {
	start time.Time
	end   time.Time
}

// Run sends all frames on all streams and returns the totals.
func (s *Sender) Run(ctx context.Context) (*SendStats, error) {
	log := logger.OrDefault(s.Log)

	rounds := max(s.Rounds, 1)

	senders := make([]stack.Sender, 0, len(s.Streams))
	defer func() {
		for _, se := range senders {
			se.Close()
		}
	}()

	for _, conf := range s.Streams {
		se, err := s.Stack.NewSender(conf, nil)
		if err != nil {
			return nil, fmt.Errorf("stream %d: %w", conf.Index, err)
		}
		senders = append(senders, se)
	}

	if s.StartDelay > 0 {
		t := time.NewTimer(s.StartDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	log.WithFields(logrus.Fields{
		"streams": len(senders),
		"frames":  len(s.Source.Frames),
		"rounds":  rounds,
		"fps":     s.FPS,
	}).Info("sending")

	var mutex sync.Mutex
	spans := make([]streamSpan, len(senders))

	g, gctx := errgroup.WithContext(ctx)

	for i, se := range senders {
		g.Go(func() error {
			start := time.Now()

			err := s.runStream(gctx, se, rounds)
			if err != nil {
				return fmt.Errorf("stream %d: %w", s.Streams[i].Index, err)
			}

			mutex.Lock()
			spans[i] = streamSpan{start: start, end: time.Now()}
			mutex.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	stats := &SendStats{
		Streams: len(senders),
		Frames:  uint64(len(s.Source.Frames)) * uint64(rounds) * uint64(len(senders)),
		Bytes:   s.Source.Bytes() * uint64(rounds) * uint64(len(senders)),
	}

	if len(spans) != 0 {
		first := spans[0].start
		last := spans[0].end
		for _, sp := range spans[1:] {
			if sp.start.Before(first) {
				first = sp.start
			}
			if sp.end.After(last) {
				last = sp.end
			}
		}
		stats.Duration = last.Sub(first)
	}

	return stats, nil
}

func (s *Sender) runStream(ctx context.Context, se stack.Sender, rounds int) error {
	p := pacer.New(s.FPS)
	p.Start()

	var n uint64

	for range rounds {
		for _, frame := range s.Source.Frames {
			err := p.Wait(ctx, n)
			if err != nil {
				return err
			}

			err = se.WriteAccessUnit(frame.NALUs, frameTimestamp(n, s.FPS))
			if err != nil {
				return err
			}

			n++
		}
	}

	return nil
}
