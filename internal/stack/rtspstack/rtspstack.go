// Package rtspstack sends and receives H265 over RTSP sessions.
//
// The receiving end runs a RTSP server that accepts a publisher.
// SRTP is provided by RTSPS, with media encrypted by the RTSP library.
package rtspstack

import (
	"net"
	"strconv"
	"time"

	"github.com/bluenviron/gortsplib/v5"
	"github.com/bluenviron/gortsplib/v5/pkg/base"
	"github.com/bluenviron/gortsplib/v5/pkg/description"
	"github.com/bluenviron/gortsplib/v5/pkg/format"
	"github.com/bluenviron/gortsplib/v5/pkg/format/rtph265"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// path of the published stream.
const streamPath = "/stream"

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Stack is the RTSP stack.
type Stack struct {
	Log logrus.FieldLogger

	// transport protocol of media, udp or tcp.
	Protocol string

	// tunnel of RTSP sessions, none or http.
	Tunnel string

	// certificate and key of RTSPS servers.
	// When empty, a self-signed certificate is generated.
	TLSCert string
	TLSKey  string
}

// Name implements stack.Stack.
func (s *Stack) Name() string {
	return "rtsp"
}

func (s *Stack) log(conf stack.StreamConf) logrus.FieldLogger {
	return logger.OrDefault(s.Log).WithFields(logrus.Fields{
		"stack":  s.Name(),
		"stream": conf.Index,
	})
}

func (s *Stack) checkConf(conf stack.StreamConf) error {
	if conf.Format != stack.FormatH265 {
		return liberrors.ErrFormatUnsupported{Stack: s.Name(), Format: conf.Format}
	}

	// media of RTSPS sessions is protected with AES-128.
	if conf.SRTP != nil && conf.SRTP.KeySize != 128 {
		return liberrors.ErrInvalidParameter{Name: "SRTP key size of stack rtsp", Value: conf.SRTP.KeySize}
	}

	return nil
}

// transport returns the media protocol and tunnel of sessions.
func (s *Stack) transport() (gortsplib.Protocol, gortsplib.Tunnel, error) {
	proto, err := parseProtocol(s.Protocol)
	if err != nil {
		return 0, 0, err
	}

	tunnel, err := parseTunnel(s.Tunnel)
	if err != nil {
		return 0, 0, err
	}

	// tunneled sessions carry media inside the tunnel
	if tunnel != gortsplib.TunnelNone {
		proto = gortsplib.ProtocolTCP
	}

	return proto, tunnel, nil
}

func (s *Stack) newServer(conf stack.StreamConf, onPacket stack.PacketHandler, echo bool) (*server, error) {
	err := s.checkConf(conf)
	if err != nil {
		return nil, err
	}

	proto, _, err := s.transport()
	if err != nil {
		return nil, err
	}

	sh := &server{
		log:      s.log(conf),
		onPacket: onPacket,
		echo:     echo,
	}
	err = sh.initialize(conf, proto == gortsplib.ProtocolUDP, s)
	if err != nil {
		return nil, err
	}

	return sh, nil
}

// NewReceiver implements stack.Stack.
func (s *Stack) NewReceiver(conf stack.StreamConf, onPacket stack.PacketHandler) (stack.Receiver, error) {
	return s.newServer(conf, onPacket, false)
}

// NewEcho implements stack.Stack.
// The echo serves the published stream back to readers on the same path.
func (s *Stack) NewEcho(conf stack.StreamConf, onPacket stack.PacketHandler) (stack.Receiver, error) {
	return s.newServer(conf, onPacket, true)
}

// NewSender implements stack.Stack.
// When onReturn is set, a second session reads the stream back from the remote server.
func (s *Stack) NewSender(conf stack.StreamConf, onReturn stack.PacketHandler) (stack.Sender, error) {
	err := s.checkConf(conf)
	if err != nil {
		return nil, err
	}

	proto, tunnel, err := s.transport()
	if err != nil {
		return nil, err
	}

	scheme := "rtsp"
	if conf.SRTP != nil {
		scheme = "rtsps"
	}

	u, err := base.ParseURL(scheme + "://" + conf.RemoteHostPort() + streamPath)
	if err != nil {
		return nil, err
	}

	forma := &format.H265{
		PayloadTyp: conf.PayloadType,
	}

	desc := &description.Session{
		Medias: []*description.Media{{
			Type:    description.MediaTypeVideo,
			Formats: []format.Format{forma},
		}},
	}

	enc := &rtph265.Encoder{
		PayloadType:    conf.PayloadType,
		PayloadMaxSize: conf.PayloadMaxSize,
	}
	err = enc.Init()
	if err != nil {
		return nil, err
	}

	se := &sender{
		log:   s.log(conf).WithFields(logrus.Fields{"url": u.String()}),
		media: desc.Medias[0],
		enc:   enc,
	}

	se.publisher = &gortsplib.Client{
		TLSConfig: clientTLSConfig(),
		Tunnel:    tunnel,
		Protocol:  &proto,
	}
	err = se.publisher.StartRecording(u.String(), desc)
	if err != nil {
		return nil, err
	}

	if onReturn != nil {
		err = se.startReader(u, proto, tunnel, onReturn)
		if err != nil {
			se.publisher.Close()
			return nil, err
		}
	}

	se.log.Debug("recording")
	return se, nil
}

type sender struct {
	log       logrus.FieldLogger
	media     *description.Media
	enc       *rtph265.Encoder
	publisher *gortsplib.Client
	reader    *gortsplib.Client
}

func (s *sender) startReader(
	u *base.URL,
	proto gortsplib.Protocol,
	tunnel gortsplib.Tunnel,
	onReturn stack.PacketHandler,
) error {
	s.reader = &gortsplib.Client{
		Scheme:    u.Scheme,
		Host:      u.Host,
		TLSConfig: clientTLSConfig(),
		Tunnel:    tunnel,
		Protocol:  &proto,
	}
	err := s.reader.Start()
	if err != nil {
		return err
	}

	desc, _, err := s.reader.Describe(u)
	if err != nil {
		s.reader.Close()
		return err
	}

	err = s.reader.SetupAll(desc.BaseURL, desc.Medias)
	if err != nil {
		s.reader.Close()
		return err
	}

	s.reader.OnPacketRTPAny(func(_ *description.Media, _ format.Format, pkt *rtp.Packet) {
		onReturn(pkt, time.Now())
	})

	_, err = s.reader.Play(nil)
	if err != nil {
		s.reader.Close()
		return err
	}

	return nil
}

// Close implements stack.Sender.
func (s *sender) Close() {
	if s.reader != nil {
		s.reader.Close()
	}
	s.publisher.Close()
}

// WriteAccessUnit implements stack.Sender.
func (s *sender) WriteAccessUnit(nalus [][]byte, ts uint32) error {
	pkts, err := s.enc.Encode(nalus)
	if err != nil {
		return err
	}

	for _, pkt := range pkts {
		pkt.Timestamp = ts

		err = s.publisher.WritePacketRTP(s.media, pkt)
		if err != nil {
			return err
		}
	}

	return nil
}
