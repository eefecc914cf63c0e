package rtpbench

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/internal/stack/rtpstack"
	"github.com/bluenviron/rtpbench/internal/stack/rtspstack"
	"github.com/bluenviron/rtpbench/internal/stack/sdpstack"
	"github.com/bluenviron/rtpbench/pkg/framesource"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

func annexB(nalus ...[]byte) []byte {
	var buf []byte
	for _, nalu := range nalus {
		buf = append(buf, 0x00, 0x00, 0x00, 0x01)
		buf = append(buf, nalu...)
	}
	return buf
}

func testSource(t *testing.T) *framesource.Source {
	src, err := framesource.FromAccessUnits([][]byte{
		annexB(
			[]byte{0x40, 0x01, 0x0c},
			append([]byte{0x26, 0x01, 0xaf}, bytes.Repeat([]byte{0x11}, 4000)...),
		),
		annexB(append([]byte{0x02, 0x01, 0xd0}, bytes.Repeat([]byte{0x22}, 800)...)),
		annexB(append([]byte{0x02, 0x01, 0xd0}, bytes.Repeat([]byte{0x33}, 1200)...)),
	}, stack.FormatH265)
	require.NoError(t, err)
	return src
}

func streamConf(index int, localPort int, remotePort int) stack.StreamConf {
	return stack.StreamConf{
		Index:          index,
		LocalAddress:   "127.0.0.1",
		LocalPort:      localPort,
		RemoteAddress:  "127.0.0.1",
		RemotePort:     remotePort,
		Format:         stack.FormatH265,
		PayloadType:    96,
		PayloadMaxSize: 1460,
	}
}

func TestNewStack(t *testing.T) {
	for _, ca := range []struct {
		name string
		typ  stack.Stack
	}{
		{"rtsp", &rtspstack.Stack{}},
		{"rtp", &rtpstack.Stack{}},
		{"sdp", &sdpstack.Stack{}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			c := conf.Default()
			c.Stack = ca.name

			s, err := NewStack(&c, logger.Discard())
			require.NoError(t, err)
			require.IsType(t, ca.typ, s)
			require.Equal(t, ca.name, s.Name())
		})
	}

	c := conf.Default()
	c.Stack = "webrtc"
	_, err := NewStack(&c, logger.Discard())
	require.Equal(t, liberrors.ErrUnknownStack{Name: "webrtc"}, err)
}

func TestFrameTimestamp(t *testing.T) {
	require.Equal(t, uint32(0), frameTimestamp(0, 30))
	require.Equal(t, uint32(3000), frameTimestamp(1, 30))
	require.Equal(t, uint32(90000), frameTimestamp(60, 60))
	require.Equal(t, uint32(3003), frameTimestamp(1, 29.97))
}

func TestSendReceive(t *testing.T) {
	s := &rtpstack.Stack{Log: logger.Discard()}
	src := testSource(t)

	r := &Receiver{
		Stack: s,
		Streams: []stack.StreamConf{
			streamConf(0, 47000, 0),
			streamConf(1, 47002, 0),
		},
		Timeout:  2 * time.Second,
		Expected: 6,
		Decode:   true,
		Log:      logger.Discard(),
	}

	type result struct {
		frames       uint64
		lost         uint64
		packets      uint64
		streamFrames []uint64
		err          error
	}
	done := make(chan result)

	go func() {
		snap, err := r.Run(context.Background())
		done <- result{snap.Frames, snap.Lost, snap.Packets, snap.StreamFrames, err}
	}()

	// let the receiver bind its sockets
	time.Sleep(100 * time.Millisecond)

	se := &Sender{
		Stack:  s,
		Source: src,
		Streams: []stack.StreamConf{
			streamConf(0, 47100, 47000),
			streamConf(1, 47102, 47002),
		},
		FPS:        100,
		Rounds:     2,
		StartDelay: 10 * time.Millisecond,
		Log:        logger.Discard(),
	}

	stats, err := se.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Streams)
	require.Equal(t, uint64(12), stats.Frames)
	require.Equal(t, src.Bytes()*4, stats.Bytes)
	require.Greater(t, stats.Duration, 40*time.Millisecond)

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, uint64(12), res.frames)
	require.Equal(t, []uint64{6, 6}, res.streamFrames)
	require.Equal(t, uint64(0), res.lost)
	require.Equal(t, uint64(2*2*(1+3+1+1)), res.packets)
}

func TestReceiverStartTimeout(t *testing.T) {
	r := &Receiver{
		Stack:        &rtpstack.Stack{Log: logger.Discard()},
		Streams:      []stack.StreamConf{streamConf(0, 47010, 0)},
		Timeout:      time.Second,
		StartTimeout: 100 * time.Millisecond,
		Log:          logger.Discard(),
	}

	_, err := r.Run(context.Background())
	require.Equal(t, liberrors.ErrNoPackets{Timeout: 100 * time.Millisecond}, err)
}

func TestReceiverCanceled(t *testing.T) {
	r := &Receiver{
		Stack:   &rtpstack.Stack{Log: logger.Discard()},
		Streams: []stack.StreamConf{streamConf(0, 47020, 0)},
		Timeout: time.Second,
		Log:     logger.Discard(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLatency(t *testing.T) {
	s := &rtpstack.Stack{Log: logger.Discard()}

	e := &Echo{
		Stack:   s,
		Streams: []stack.StreamConf{streamConf(0, 47200, 47202)},
		Timeout: 500 * time.Millisecond,
		Log:     logger.Discard(),
	}

	echoDone := make(chan error)
	go func() {
		_, err := e.Run(context.Background())
		echoDone <- err
	}()

	time.Sleep(100 * time.Millisecond)

	ls := &LatencySender{
		Stack:  s,
		Source: testSource(t),
		Stream: streamConf(0, 47202, 47200),
		FPS:    50,
		Drain:  time.Second,
		Log:    logger.Discard(),
	}

	sum, err := ls.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sum.Frames)
	require.Equal(t, 1, sum.IntraFrames)
	require.Equal(t, 2, sum.InterFrames)
	require.Equal(t, 0, sum.Lost)
	require.Greater(t, sum.Avg, time.Duration(0))
	require.Greater(t, sum.Intra, time.Duration(0))
	require.Greater(t, sum.Inter, time.Duration(0))

	require.NoError(t, <-echoDone)
}

func TestLatencyLostFrames(t *testing.T) {
	ls := &LatencySender{
		Stack:  &rtpstack.Stack{Log: logger.Discard()},
		Source: testSource(t),
		Stream: streamConf(0, 47210, 47212),
		FPS:    100,
		Drain:  100 * time.Millisecond,
		Log:    logger.Discard(),
	}

	sum, err := ls.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sum.Lost)
	require.Equal(t, 0, sum.Frames)
	require.Equal(t, time.Duration(0), sum.Avg)
}
