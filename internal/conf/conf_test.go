package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpbench/pkg/stack"
)

func TestParseBoolish(t *testing.T) {
	for _, ca := range []struct {
		in  string
		out bool
	}{
		{"1", true},
		{"yes", true},
		{"Y", true},
		{"true", true},
		{"0", false},
		{"no", false},
		{"", false},
	} {
		t.Run(ca.in, func(t *testing.T) {
			v, err := ParseBoolish(ca.in)
			require.NoError(t, err)
			require.Equal(t, ca.out, v)
		})
	}

	_, err := ParseBoolish("maybe")
	require.EqualError(t, err, "invalid boolean value 'maybe'")
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("sender", nil, RegisterSenderFlags)
	require.NoError(t, err)

	d := Default()
	require.Equal(t, &d, c)
}

func TestLoadFlags(t *testing.T) {
	c, err := Load("sender", []string{
		"-stack", "rtsp",
		"-streams", "3",
		"-srtp", "yes",
		"-srtp-key-size", "256",
		"-fps", "60",
		"-local-port", "9000",
	}, RegisterSenderFlags)
	require.NoError(t, err)

	require.Equal(t, "rtsp", c.Stack)
	require.Equal(t, 60.0, c.FPS)

	sc := c.StreamConf(2)
	require.Equal(t, stack.StreamConf{
		Index:          2,
		LocalAddress:   "0.0.0.0",
		LocalPort:      9004,
		RemoteAddress:  "127.0.0.1",
		RemotePort:     8892,
		Format:         stack.FormatH265,
		PayloadType:    96,
		PayloadMaxSize: 1460,
		SRTP:           &stack.SRTPConf{KeySize: 256},
		UDPBufferSize:  40 * 1000 * 1000,
	}, sc)

	require.Len(t, c.StreamConfs(), 3)
}

func TestLoadBoolishFlagWithValue(t *testing.T) {
	c, err := Load("receiver", []string{
		"-decode", "no",
		"-expected", "602",
		"-srtp=yes",
	}, RegisterReceiverFlags)
	require.NoError(t, err)

	require.Equal(t, Boolish(false), c.Decode)
	require.Equal(t, 602, c.Expected)
	require.Equal(t, Boolish(true), c.SRTP)
}

func TestLoadUnexpectedArgument(t *testing.T) {
	_, err := Load("sender", []string{"-srtp", "yes", "extra", "-fps", "60"}, RegisterSenderFlags)
	require.EqualError(t, err, "unexpected argument 'extra'")
}

func TestLoadDefaultPorts(t *testing.T) {
	s, err := Load("sender", nil, RegisterSenderFlags)
	require.NoError(t, err)

	r, err := Load("receiver", nil, RegisterReceiverFlags)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sc := s.StreamConf(i)
		rc := r.StreamConf(i)
		require.Equal(t, rc.LocalPort, sc.RemotePort)
		require.Equal(t, sc.LocalPort, rc.RemotePort)
		require.NotEqual(t, sc.LocalPort, rc.LocalPort)
	}
}

func TestLoadFilePorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yml")

	err := os.WriteFile(path, []byte("localPort: 9100\n"), 0o644)
	require.NoError(t, err)

	c, err := Load("receiver", []string{"-config", path}, RegisterReceiverFlags)
	require.NoError(t, err)

	require.Equal(t, 9100, c.LocalPort)
	require.Equal(t, DefaultSenderPort, c.RemotePort)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yml")

	err := os.WriteFile(path, []byte(
		"stack: sdp\n"+
			"streams: 2\n"+
			"timeout: 250ms\n"+
			"srtp: y\n"+
			"udperf:\n"+
			"  packetSize: 1200\n"), 0o644)
	require.NoError(t, err)

	c, err := Load("receiver", []string{"-config", path, "-streams", "4"}, RegisterReceiverFlags)
	require.NoError(t, err)

	require.Equal(t, "sdp", c.Stack)
	require.Equal(t, 4, c.Streams)
	require.Equal(t, 250*time.Millisecond, c.Timeout)
	require.Equal(t, Boolish(true), c.SRTP)
	require.Equal(t, 1200, c.UDPerf.PacketSize)
	require.Equal(t, 10, c.UDPerf.Rounds)
}

func TestLoadFileUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yml")

	err := os.WriteFile(path, []byte("unknown: 1\n"), 0o644)
	require.NoError(t, err)

	_, err = Load("receiver", []string{"-config", path}, RegisterReceiverFlags)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, ca := range []struct {
		name   string
		modify func(c *Conf)
		err    string
	}{
		{"streams", func(c *Conf) { c.Streams = 0 }, "streams must be at least 1"},
		{"fps", func(c *Conf) { c.FPS = 0 }, "fps must be positive"},
		{"port", func(c *Conf) { c.LocalPort = 65535 }, "port 65535 out of range for 1 streams"},
		{"key size", func(c *Conf) { c.SRTPKeySize = 192 }, "SRTP key size must be 128 or 256"},
		{"payload size", func(c *Conf) { c.PayloadMaxSize = 3 }, "payload max size must be between 16 and 65495"},
		{"format", func(c *Conf) { c.Format = "av1" }, "unsupported format 'av1'"},
		{"layout", func(c *Conf) { c.Layout = "mkv" }, "invalid layout 'mkv'"},
	} {
		t.Run(ca.name, func(t *testing.T) {
			c := Default()
			ca.modify(&c)
			require.EqualError(t, c.Validate(), ca.err)
		})
	}
}
