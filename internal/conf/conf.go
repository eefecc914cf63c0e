// Package conf contains the configuration of the drivers.
package conf

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bluenviron/rtpbench/pkg/framesource"
	"github.com/bluenviron/rtpbench/pkg/results"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// FixtureConf is the configuration of the fixture encoder.
type FixtureConf struct {
	Encoder string `yaml:"encoder"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	QP      int    `yaml:"qp"`
	FPS     int    `yaml:"fps"`
	Period  int    `yaml:"period"`
	Preset  string `yaml:"preset"`
}

// UDPerfConf is the configuration of the raw socket benchmark.
type UDPerfConf struct {
	Mode        string        `yaml:"mode"`
	Port        int           `yaml:"port"`
	PacketSize  int           `yaml:"packetSize"`
	Rounds      int           `yaml:"rounds"`
	Packets     int           `yaml:"packets"`
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// Conf is the configuration of a driver.
type Conf struct {
	LogLevel     string `yaml:"logLevel"`
	Stack        string `yaml:"stack"`
	Input        string `yaml:"input"`
	Layout       string `yaml:"layout"`
	Result       string `yaml:"result"`
	ResultFormat string `yaml:"resultFormat"`

	// stream
	LocalAddress   string  `yaml:"localAddress"`
	LocalPort      int     `yaml:"localPort"`
	RemoteAddress  string  `yaml:"remoteAddress"`
	RemotePort     int     `yaml:"remotePort"`
	Streams        int     `yaml:"streams"`
	Format         string  `yaml:"format"`
	PayloadType    int     `yaml:"payloadType"`
	PayloadMaxSize int     `yaml:"payloadMaxSize"`
	SRTP           Boolish `yaml:"srtp"`
	SRTPKeySize    int     `yaml:"srtpKeySize"`
	UDPBufferSize  int     `yaml:"udpBufferSize"`

	// timing
	FPS          float64       `yaml:"fps"`
	Rounds       int           `yaml:"rounds"`
	StartDelay   time.Duration `yaml:"startDelay"`
	Timeout      time.Duration `yaml:"timeout"`
	StartTimeout time.Duration `yaml:"startTimeout"`
	Drain        time.Duration `yaml:"drain"`
	Expected     int           `yaml:"expected"`
	Decode       Boolish       `yaml:"decode"`

	// stack specific
	RTSPProtocol string        `yaml:"rtspProtocol"`
	RTSPTunnel   string        `yaml:"rtspTunnel"`
	TLSCert      string        `yaml:"tlsCert"`
	TLSKey       string        `yaml:"tlsKey"`
	SDPFile      string        `yaml:"sdpFile"`
	RTCPPeriod   time.Duration `yaml:"rtcpPeriod"`

	Fixture FixtureConf `yaml:"fixture"`
	UDPerf  UDPerfConf  `yaml:"udperf"`
}

// Default ports. Senders bind DefaultSenderPort and send to DefaultReceiverPort,
// receivers do the opposite.
const (
	DefaultSenderPort   = 8890
	DefaultReceiverPort = 8888
)

// Default returns the default configuration of senders.
func Default() Conf {
	return Conf{
		LogLevel:       "info",
		Stack:          "rtp",
		Layout:         "sidecar",
		ResultFormat:   "text",
		LocalAddress:   "0.0.0.0",
		LocalPort:      DefaultSenderPort,
		RemoteAddress:  "127.0.0.1",
		RemotePort:     DefaultReceiverPort,
		Streams:        1,
		Format:         "hevc",
		PayloadType:    96,
		PayloadMaxSize: 1460,
		SRTPKeySize:    128,
		UDPBufferSize:  40 * 1000 * 1000,
		FPS:            30,
		Rounds:         1,
		StartDelay:     50 * time.Millisecond,
		Timeout:        time.Second,
		Drain:          time.Second,
		Decode:         true,
		RTSPProtocol:   "udp",
		RTSPTunnel:     "none",
		SDPFile:        "stream.sdp",
		Fixture: FixtureConf{
			Encoder: "kvazaar",
			Preset:  "ultrafast",
		},
		UDPerf: UDPerfConf{
			Mode:        "server",
			Port:        8888,
			PacketSize:  1458,
			Rounds:      10,
			Packets:     350000,
			IdleTimeout: 2 * time.Second,
		},
	}
}

// RegisterFunc registers the flags used by a driver.
type RegisterFunc func(fs *flag.FlagSet, c *Conf)

// Load builds the configuration of a driver from defaults,
// an optional YAML file passed with -config, and command-line flags.
// Flags take precedence over the file.
func Load(name string, args []string, register RegisterFunc) (*Conf, error) {
	c := Default()
	var path string

	fs := newFlagSet(name, &c, &path, register)
	err := parseFlags(fs, args)
	if err != nil {
		return nil, err
	}

	if path != "" {
		file := path

		c = Default()
		newFlagSet(name, &c, &path, register)

		err = c.loadFile(file)
		if err != nil {
			return nil, err
		}

		// registering flags may apply role defaults, which must not
		// override the file.
		loaded := c
		fs = newFlagSet(name, &c, &path, register)
		c = loaded

		err = parseFlags(fs, args)
		if err != nil {
			return nil, err
		}
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func newFlagSet(name string, c *Conf, path *string, register RegisterFunc) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(path, "config", "", "path to a YAML configuration file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	register(fs, c)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if fs.NArg() != 0 {
		return fmt.Errorf("unexpected argument '%s'", fs.Arg(0))
	}

	return nil
}

func (c *Conf) loadFile(path string) error {
	byts, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(byts))
	dec.KnownFields(true)

	err = dec.Decode(c)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// Validate checks the configuration.
func (c Conf) Validate() error {
	if c.Streams < 1 {
		return fmt.Errorf("streams must be at least 1")
	}

	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive")
	}

	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}

	lastPort := 2 * (c.Streams - 1)
	for _, port := range []int{c.LocalPort, c.RemotePort} {
		if port < 0 || (port+lastPort+1) > 65535 {
			return fmt.Errorf("port %d out of range for %d streams", port, c.Streams)
		}
	}

	if c.SRTPKeySize != 128 && c.SRTPKeySize != 256 {
		return fmt.Errorf("SRTP key size must be 128 or 256")
	}

	if c.PayloadMaxSize < stack.MinPayloadMaxSize || c.PayloadMaxSize > stack.MaxPayloadMaxSize {
		return fmt.Errorf("payload max size must be between %d and %d",
			stack.MinPayloadMaxSize, stack.MaxPayloadMaxSize)
	}

	if c.PayloadType < 0 || c.PayloadType > 127 {
		return fmt.Errorf("invalid payload type %d", c.PayloadType)
	}

	_, err := stack.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	_, err = framesource.ParseLayout(c.Layout)
	if err != nil {
		return err
	}

	_, err = results.ParseFormat(c.ResultFormat)
	if err != nil {
		return err
	}

	return nil
}

// StreamConf returns the configuration of the i-th stream.
// Streams use consecutive port pairs.
func (c Conf) StreamConf(i int) stack.StreamConf {
	format, _ := stack.ParseFormat(c.Format)

	sc := stack.StreamConf{
		Index:          i,
		LocalAddress:   c.LocalAddress,
		LocalPort:      c.LocalPort + 2*i,
		RemoteAddress:  c.RemoteAddress,
		RemotePort:     c.RemotePort + 2*i,
		Format:         format,
		PayloadType:    uint8(c.PayloadType),
		PayloadMaxSize: c.PayloadMaxSize,
		UDPBufferSize:  c.UDPBufferSize,
	}

	if c.SRTP {
		sc.SRTP = &stack.SRTPConf{KeySize: c.SRTPKeySize}
	}

	return sc
}

// StreamConfs returns the configuration of all streams.
func (c Conf) StreamConfs() []stack.StreamConf {
	ret := make([]stack.StreamConf, c.Streams)
	for i := range ret {
		ret[i] = c.StreamConf(i)
	}
	return ret
}
