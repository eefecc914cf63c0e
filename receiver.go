package rtpbench

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
	"github.com/bluenviron/rtpbench/pkg/streamstats"
)

// Receiver counts the packets and frames of one or more incoming streams.
type Receiver struct {
	Stack   stack.Stack
	Streams []stack.StreamConf
	// the run ends after this much time without packets.
	Timeout time.Duration
	// maximum wait for the first packet. Zero waits forever.
	StartTimeout time.Duration
	// the run ends when every stream received this many frames.
	// Zero disables the check.
	Expected uint64
	// count frames by depacketizing instead of by marker bits.
	Decode bool
	Log    logrus.FieldLogger
}

// Run receives until the streams go idle and returns the merged counters.
func (r *Receiver) Run(ctx context.Context) (streamstats.Snapshot, error) {
	c := &collector{
		log:          logger.OrDefault(r.Log),
		timeout:      r.Timeout,
		startTimeout: r.StartTimeout,
		expected:     r.Expected,
		decode:       r.Decode,
	}
	return c.run(ctx, r.Streams, r.Stack.NewReceiver)
}

// Echo sends back every packet of one or more incoming streams.
type Echo struct {
	Stack   stack.Stack
	Streams []stack.StreamConf
	// the run ends after this much time without packets.
	Timeout time.Duration
	// maximum wait for the first packet. Zero waits forever.
	StartTimeout time.Duration
	Log          logrus.FieldLogger
}

// Run echoes until the streams go idle and returns the merged counters.
func (e *Echo) Run(ctx context.Context) (streamstats.Snapshot, error) {
	c := &collector{
		log:          logger.OrDefault(e.Log),
		timeout:      e.Timeout,
		startTimeout: e.StartTimeout,
	}
	return c.run(ctx, e.Streams, e.Stack.NewEcho)
}

type openFunc func(stack.StreamConf, stack.PacketHandler) (stack.Receiver, error)

type collector struct {
	log          logrus.FieldLogger
	timeout      time.Duration
	startTimeout time.Duration
	expected     uint64
	decode       bool

	stats    []*streamstats.Stream
	activity chan struct{}
}

func (c *collector) run(
	ctx context.Context,
	streams []stack.StreamConf,
	open openFunc,
) (streamstats.Snapshot, error) {
	c.activity = make(chan struct{}, 1)
	c.stats = make([]*streamstats.Stream, len(streams))

	receivers := make([]stack.Receiver, 0, len(streams))
	defer func() {
		for _, r := range receivers {
			r.Close()
		}
	}()

	for i, conf := range streams {
		st := &streamstats.Stream{
			Decode: c.decode && conf.Format == stack.FormatH265,
		}
		err := st.Initialize()
		if err != nil {
			return streamstats.Snapshot{}, err
		}
		c.stats[i] = st

		r, err := open(conf, func(pkt *rtp.Packet, at time.Time) {
			st.ProcessPacket(pkt, at)

			select {
			case c.activity <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return streamstats.Snapshot{}, fmt.Errorf("stream %d: %w", conf.Index, err)
		}
		receivers = append(receivers, r)
	}

	c.log.WithFields(logrus.Fields{"streams": len(receivers)}).Info("waiting for packets")

	err := c.waitFirst(ctx)
	if err != nil {
		return streamstats.Snapshot{}, err
	}

	c.log.Debug("first packet received")

	err = c.waitIdle(ctx)

	// stop the receivers before reading counters
	for _, r := range receivers {
		r.Close()
	}
	receivers = nil

	return c.snapshot(), err
}

func (c *collector) waitFirst(ctx context.Context) error {
	var timeout <-chan time.Time
	if c.startTimeout > 0 {
		t := time.NewTimer(c.startTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-c.activity:
		return nil

	case <-timeout:
		return liberrors.ErrNoPackets{Timeout: c.startTimeout}

	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *collector) complete() bool {
	if c.expected == 0 {
		return false
	}

	for _, st := range c.stats {
		if st.Frames() < c.expected {
			return false
		}
	}
	return true
}

func (c *collector) waitIdle(ctx context.Context) error {
	t := time.NewTimer(c.timeout)
	defer t.Stop()

	for {
		if c.complete() {
			return nil
		}

		select {
		case <-c.activity:
			t.Reset(c.timeout)

		case <-t.C:
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *collector) snapshot() streamstats.Snapshot {
	snapshots := make([]streamstats.Snapshot, len(c.stats))
	for i, st := range c.stats {
		snapshots[i] = st.Snapshot()
	}
	return streamstats.Merge(snapshots...)
}
