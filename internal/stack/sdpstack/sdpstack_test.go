package sdpstack

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/gortsplib/v5/pkg/format/rtph265"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

type frameCollector struct {
	mutex sync.Mutex
	pkts  []*rtp.Packet
	done  chan struct{}
}

func newFrameCollector() *frameCollector {
	return &frameCollector{done: make(chan struct{})}
}

func (c *frameCollector) onPacket(pkt *rtp.Packet, _ time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.pkts = append(c.pkts, pkt.Clone())
	if pkt.Marker {
		close(c.done)
	}
}

func (c *frameCollector) wait(t *testing.T) []*rtp.Packet {
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.pkts
}

var testAccessUnit = [][]byte{
	{0x40, 0x01, 0x0c},
	append([]byte{0x26, 0x01, 0xaf}, bytes.Repeat([]byte{0x55}, 2900)...),
}

func decodeAccessUnit(t *testing.T, pkts []*rtp.Packet) [][]byte {
	dec := &rtph265.Decoder{}
	require.NoError(t, dec.Init())

	for _, pkt := range pkts {
		au, err := dec.Decode(pkt)
		if err == nil {
			return au
		}
		require.ErrorIs(t, err, rtph265.ErrMorePacketsNeeded)
	}

	t.Fatal("access unit not completed")
	return nil
}

func streamConf(localPort int, remotePort int) stack.StreamConf {
	return stack.StreamConf{
		LocalAddress:   "127.0.0.1",
		LocalPort:      localPort,
		RemoteAddress:  "127.0.0.1",
		RemotePort:     remotePort,
		Format:         stack.FormatH265,
		PayloadType:    96,
		PayloadMaxSize: 1000,
	}
}

func TestFileName(t *testing.T) {
	require.Equal(t, "hevc.sdp", FileName("hevc.sdp", 0))
	require.Equal(t, "hevc_2.sdp", FileName("hevc.sdp", 2))
	require.Equal(t, "sdp/hevc_3.sdp", FileName("sdp/hevc_%d.sdp", 3))
}

func TestSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sdp")

	err := writeSessionFile(path, sessionInfo{
		Address:     "127.0.0.1",
		Port:        27888,
		PayloadType: 97,
		Codec:       "H265",
		ClockRate:   90000,
	})
	require.NoError(t, err)

	byts, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(byts), "m=video 27888 RTP/AVP 97\r\n")
	require.Contains(t, string(byts), "a=rtpmap:97 H265/90000\r\n")
	require.Contains(t, string(byts), "c=IN IP4 127.0.0.1\r\n")

	si, err := readSessionFile(path)
	require.NoError(t, err)
	require.Equal(t, &sessionInfo{
		Address:     "127.0.0.1",
		Port:        27888,
		PayloadType: 97,
		Codec:       "H265",
		ClockRate:   90000,
	}, si)
	require.NoError(t, si.check())
}

func TestSessionFileUnsupportedCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sdp")

	err := os.WriteFile(path, []byte("v=0\r\n"+
		"o=- 0 0 IN IP4 127.0.0.1\r\n"+
		"s=test\r\n"+
		"c=IN IP4 127.0.0.1\r\n"+
		"t=0 0\r\n"+
		"m=video 27890 RTP/AVP 96\r\n"+
		"a=rtpmap:96 H264/90000\r\n"), 0o644)
	require.NoError(t, err)

	s := &Stack{Log: logger.Discard(), SDPFile: path}
	_, err = s.NewReceiver(streamConf(27890, 0), func(*rtp.Packet, time.Time) {})
	require.EqualError(t, err, path+": unsupported codec 'H264'")
}

func TestUnsupported(t *testing.T) {
	s := &Stack{Log: logger.Discard(), SDPFile: filepath.Join(t.TempDir(), "s.sdp")}

	conf := streamConf(27892, 27894)
	conf.SRTP = &stack.SRTPConf{KeySize: 128}
	_, err := s.NewSender(conf, nil)
	require.Equal(t, liberrors.ErrSRTPUnsupported{Stack: "sdp"}, err)

	conf = streamConf(27892, 27894)
	conf.Format = stack.FormatH266
	_, err = s.NewReceiver(conf, nil)
	require.EqualError(t, err, "stack 'sdp' does not support format vvc")
}

func TestSendReceive(t *testing.T) {
	s := &Stack{Log: logger.Discard(), SDPFile: filepath.Join(t.TempDir(), "hevc.sdp")}

	se, err := s.NewSender(streamConf(27896, 27898), nil)
	require.NoError(t, err)
	defer se.Close()

	c := newFrameCollector()

	// the receiver takes its port from the session file written by the sender
	r, err := s.NewReceiver(streamConf(0, 0), c.onPacket)
	require.NoError(t, err)
	defer r.Close()

	err = se.WriteAccessUnit(testAccessUnit, 45000)
	require.NoError(t, err)

	pkts := c.wait(t)
	for _, pkt := range pkts {
		require.Equal(t, uint32(45000), pkt.Timestamp)
		require.Equal(t, uint8(96), pkt.PayloadType)
		require.LessOrEqual(t, len(pkt.Payload), 1000)
	}

	require.Equal(t, testAccessUnit, decodeAccessUnit(t, pkts))
}

func TestEcho(t *testing.T) {
	s := &Stack{Log: logger.Discard(), SDPFile: filepath.Join(t.TempDir(), "hevc.sdp")}

	returned := newFrameCollector()

	se, err := s.NewSender(streamConf(27900, 27902), returned.onPacket)
	require.NoError(t, err)
	defer se.Close()

	echoed := newFrameCollector()

	e, err := s.NewEcho(streamConf(0, 27900), echoed.onPacket)
	require.NoError(t, err)
	defer e.Close()

	err = se.WriteAccessUnit(testAccessUnit, 90000)
	require.NoError(t, err)

	echoed.wait(t)
	pkts := returned.wait(t)
	require.Equal(t, testAccessUnit, decodeAccessUnit(t, pkts))
}

func TestReceiverFirst(t *testing.T) {
	s := &Stack{Log: logger.Discard(), SDPFile: filepath.Join(t.TempDir(), "hevc.sdp")}

	c := newFrameCollector()

	r, err := s.NewReceiver(streamConf(27904, 0), c.onPacket)
	require.NoError(t, err)
	defer r.Close()

	byts, err := os.ReadFile(FileName(s.SDPFile, 0))
	require.NoError(t, err)
	require.Contains(t, string(byts), "m=video 27904 RTP/AVP 96\r\n")

	se, err := s.NewSender(streamConf(27906, 27904), nil)
	require.NoError(t, err)
	defer se.Close()

	err = se.WriteAccessUnit(testAccessUnit, 90000)
	require.NoError(t, err)

	require.Equal(t, testAccessUnit, decodeAccessUnit(t, c.wait(t)))
}
