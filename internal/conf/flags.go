package conf

import (
	"flag"
)

// RegisterStreamFlags registers flags shared by the stream drivers.
func RegisterStreamFlags(fs *flag.FlagSet, c *Conf) {
	fs.StringVar(&c.Stack, "stack", c.Stack, "stack under test (rtp, rtsp, sdp)")
	fs.StringVar(&c.Result, "result", c.Result, "file the result is appended to")
	fs.StringVar(&c.ResultFormat, "result-format", c.ResultFormat, "result file format (text, csv)")
	fs.StringVar(&c.LocalAddress, "local-address", c.LocalAddress, "local address")
	fs.IntVar(&c.LocalPort, "local-port", c.LocalPort, "local port of the first stream")
	fs.StringVar(&c.RemoteAddress, "remote-address", c.RemoteAddress, "remote address")
	fs.IntVar(&c.RemotePort, "remote-port", c.RemotePort, "remote port of the first stream")
	fs.IntVar(&c.Streams, "streams", c.Streams, "number of parallel streams")
	fs.StringVar(&c.Format, "format", c.Format, "video format (hevc, vvc)")
	fs.IntVar(&c.PayloadType, "payload-type", c.PayloadType, "RTP payload type")
	fs.IntVar(&c.PayloadMaxSize, "payload-max-size", c.PayloadMaxSize, "maximum size of RTP payloads")
	fs.Var(&c.SRTP, "srtp", "enable SRTP (yes, no)")
	fs.IntVar(&c.SRTPKeySize, "srtp-key-size", c.SRTPKeySize, "SRTP key size in bits (128, 256)")
	fs.IntVar(&c.UDPBufferSize, "udp-buffer-size", c.UDPBufferSize, "size of UDP socket buffers, 0 to keep the default")
	fs.StringVar(&c.RTSPProtocol, "rtsp-protocol", c.RTSPProtocol, "RTSP transport protocol (udp, tcp)")
	fs.StringVar(&c.RTSPTunnel, "rtsp-tunnel", c.RTSPTunnel, "RTSP tunnel (none, http)")
	fs.StringVar(&c.TLSCert, "tls-cert", c.TLSCert, "TLS certificate of the RTSPS server")
	fs.StringVar(&c.TLSKey, "tls-key", c.TLSKey, "TLS key of the RTSPS server")
	fs.StringVar(&c.SDPFile, "sdp", c.SDPFile, "SDP session file of the sdp stack")
	fs.DurationVar(&c.RTCPPeriod, "rtcp-period", c.RTCPPeriod, "period of RTCP sender reports, 0 to disable")
}

// RegisterSenderFlags registers the flags of senders.
func RegisterSenderFlags(fs *flag.FlagSet, c *Conf) {
	RegisterStreamFlags(fs, c)
	fs.StringVar(&c.Input, "input", c.Input, "elementary stream to send")
	fs.StringVar(&c.Layout, "layout", c.Layout, "frame layout of the input (sidecar, prefixed, annexb)")
	fs.Float64Var(&c.FPS, "fps", c.FPS, "frame rate")
	fs.IntVar(&c.Rounds, "rounds", c.Rounds, "number of times the input is sent")
	fs.DurationVar(&c.StartDelay, "start-delay", c.StartDelay, "delay between opening streams and sending")
	fs.DurationVar(&c.Drain, "drain", c.Drain, "time to wait for outstanding frames")
}

// RegisterReceiverFlags registers the flags of receivers.
// It also swaps the default ports, so that a receiver listens where a sender sends.
func RegisterReceiverFlags(fs *flag.FlagSet, c *Conf) {
	c.LocalPort, c.RemotePort = DefaultReceiverPort, DefaultSenderPort
	RegisterStreamFlags(fs, c)
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "inactivity that ends the run")
	fs.DurationVar(&c.StartTimeout, "start-timeout", c.StartTimeout, "maximum wait for the first packet, 0 waits forever")
	fs.IntVar(&c.Expected, "expected", c.Expected, "expected frames per stream, 0 disables the check")
	fs.Var(&c.Decode, "decode", "count frames with the RTP/H265 depacketizer (yes, no)")
}

// RegisterFixtureFlags registers the flags of the fixture encoder.
func RegisterFixtureFlags(fs *flag.FlagSet, c *Conf) {
	fs.StringVar(&c.Input, "input", c.Input, "raw YUV input")
	fs.StringVar(&c.Fixture.Encoder, "encoder", c.Fixture.Encoder, "encoder executable")
	fs.IntVar(&c.Fixture.Width, "width", c.Fixture.Width, "frame width")
	fs.IntVar(&c.Fixture.Height, "height", c.Fixture.Height, "frame height")
	fs.IntVar(&c.Fixture.QP, "qp", c.Fixture.QP, "quantization parameter")
	fs.IntVar(&c.Fixture.FPS, "fps", c.Fixture.FPS, "frame rate")
	fs.IntVar(&c.Fixture.Period, "period", c.Fixture.Period, "intra period")
	fs.StringVar(&c.Fixture.Preset, "preset", c.Fixture.Preset, "encoder preset")
}

// RegisterUDPerfFlags registers the flags of the raw socket benchmark.
func RegisterUDPerfFlags(fs *flag.FlagSet, c *Conf) {
	fs.StringVar(&c.UDPerf.Mode, "mode", c.UDPerf.Mode, "server or client")
	fs.StringVar(&c.LocalAddress, "local-address", c.LocalAddress, "address the server listens on")
	fs.StringVar(&c.RemoteAddress, "remote-address", c.RemoteAddress, "address of the server")
	fs.IntVar(&c.UDPerf.Port, "port", c.UDPerf.Port, "UDP port, the control connection uses the next one")
	fs.IntVar(&c.UDPerf.PacketSize, "packet-size", c.UDPerf.PacketSize, "size of datagrams")
	fs.IntVar(&c.UDPerf.Rounds, "rounds", c.UDPerf.Rounds, "number of rounds")
	fs.IntVar(&c.UDPerf.Packets, "packets", c.UDPerf.Packets, "datagrams per round")
	fs.DurationVar(&c.UDPerf.IdleTimeout, "idle-timeout", c.UDPerf.IdleTimeout, "silence that ends a round")
	fs.StringVar(&c.Result, "result", c.Result, "file the result is appended to")
	fs.StringVar(&c.ResultFormat, "result-format", c.ResultFormat, "result file format (text, csv)")
	fs.IntVar(&c.UDPBufferSize, "udp-buffer-size", c.UDPBufferSize, "size of UDP socket buffers, 0 to keep the default")
}
