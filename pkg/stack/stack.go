// Package stack defines the interface implemented by RTP/RTSP stacks under test.
package stack

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pion/rtp"
)

// ClockRate is the RTP clock rate of video streams.
const ClockRate = 90000

// bounds of StreamConf.PayloadMaxSize.
// The upper one is the largest UDP payload minus the RTP header.
const (
	MinPayloadMaxSize = 16
	MaxPayloadMaxSize = 65495
)

// Format is a video format.
type Format int

// formats.
const (
	FormatH265 Format = iota
	FormatH266
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatH265:
		return "hevc"
	case FormatH266:
		return "vvc"
	}
	return "unknown"
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "hevc", "h265":
		return FormatH265, nil
	case "vvc", "h266":
		return FormatH266, nil
	}
	return 0, fmt.Errorf("unsupported format '%s'", s)
}

// SRTPConf enables SRTP.
type SRTPConf struct {
	// key size in bits, 128 or 256.
	KeySize int
}

// StreamConf is the configuration of a single stream.
type StreamConf struct {
	Index         int
	LocalAddress  string
	LocalPort     int
	RemoteAddress string
	RemotePort    int
	Format        Format
	PayloadType   uint8
	// maximum size of RTP payloads.
	PayloadMaxSize int
	SRTP           *SRTPConf
	// size of kernel UDP buffers. Zero leaves the system default.
	UDPBufferSize int
}

// LocalHostPort returns the local address in host:port form.
func (c StreamConf) LocalHostPort() string {
	return net.JoinHostPort(c.LocalAddress, strconv.Itoa(c.LocalPort))
}

// RemoteHostPort returns the remote address in host:port form.
func (c StreamConf) RemoteHostPort() string {
	return net.JoinHostPort(c.RemoteAddress, strconv.Itoa(c.RemotePort))
}

// PacketHandler is called for every received RTP packet.
// The packet must not be retained after the call returns.
type PacketHandler func(pkt *rtp.Packet, at time.Time)

// Sender sends access units.
type Sender interface {
	// WriteAccessUnit sends the NAL units of an access unit with the given RTP timestamp.
	WriteAccessUnit(nalus [][]byte, ts uint32) error
	Close()
}

// Receiver receives packets and hands them over to a PacketHandler.
type Receiver interface {
	Close()
}

// Stack is a RTP/RTSP stack.
type Stack interface {
	Name() string

	// NewSender opens a stream towards the remote address.
	// When onReturn is not nil, packets coming back from the remote
	// end (for instance an echo) are passed to it.
	NewSender(conf StreamConf, onReturn PacketHandler) (Sender, error)

	// NewReceiver opens a stream on the local address.
	NewReceiver(conf StreamConf, onPacket PacketHandler) (Receiver, error)

	// NewEcho opens a stream on the local address and sends back
	// every packet to the remote address.
	NewEcho(conf StreamConf, onPacket PacketHandler) (Receiver, error)
}
