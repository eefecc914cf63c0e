// Package sdpstack sends and receives H265 over RTP sessions described by SDP files.
//
// The sender writes the session file that the receiving end reads to know
// where to listen, like multimedia frameworks that open "sdp" inputs.
// A receiving end that starts first writes the file itself.
package sdpstack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/asyncprocessor"
	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/internal/udpconn"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

const (
	rtpHeaderSize = 12

	// maximum size of a UDP payload.
	maxPacketSize = 65507

	echoQueueSize = 1024
)

// Stack is the SDP-described RTP stack.
type Stack struct {
	Log logrus.FieldLogger

	// session file pattern, see FileName.
	SDPFile string
}

// Name implements stack.Stack.
func (s *Stack) Name() string {
	return "sdp"
}

func (s *Stack) log(conf stack.StreamConf) logrus.FieldLogger {
	return logger.OrDefault(s.Log).WithFields(logrus.Fields{
		"stack":  s.Name(),
		"stream": conf.Index,
	})
}

func (s *Stack) checkConf(conf stack.StreamConf) error {
	if conf.SRTP != nil {
		return liberrors.ErrSRTPUnsupported{Stack: s.Name()}
	}
	if conf.Format != stack.FormatH265 {
		return liberrors.ErrFormatUnsupported{Stack: s.Name(), Format: conf.Format}
	}
	return nil
}

// NewSender implements stack.Stack.
// It writes the session file of the stream before sending anything.
func (s *Stack) NewSender(conf stack.StreamConf, onReturn stack.PacketHandler) (stack.Sender, error) {
	err := s.checkConf(conf)
	if err != nil {
		return nil, err
	}

	path := FileName(s.SDPFile, conf.Index)

	err = writeSessionFile(path, sessionInfo{
		Address:     conf.RemoteAddress,
		Port:        conf.RemotePort,
		PayloadType: conf.PayloadType,
		Codec:       "H265",
		ClockRate:   stack.ClockRate,
	})
	if err != nil {
		return nil, err
	}

	remote, err := udpconn.ResolveRemote(conf.RemoteAddress, conf.RemotePort)
	if err != nil {
		return nil, err
	}

	ssrc, err := randUint32()
	if err != nil {
		return nil, err
	}

	se := &session{
		log:      s.log(conf).WithFields(logrus.Fields{"sdp": path}),
		remote:   remote,
		onPacket: onReturn,
	}
	err = se.initialize(conf.LocalHostPort(), conf.UDPBufferSize)
	if err != nil {
		return nil, err
	}

	err = udpconn.PrepareSender(se.conn, remote)
	if err != nil {
		se.Close()
		return nil, err
	}

	return &sender{
		session: se,
		packetizer: rtp.NewPacketizer(
			uint16(conf.PayloadMaxSize+rtpHeaderSize),
			conf.PayloadType,
			ssrc,
			&codecs.H265Payloader{},
			rtp.NewRandomSequencer(),
			stack.ClockRate,
		),
	}, nil
}

func (s *Stack) openIncoming(conf stack.StreamConf) (string, *sessionInfo, error) {
	err := s.checkConf(conf)
	if err != nil {
		return "", nil, err
	}

	path := FileName(s.SDPFile, conf.Index)

	si, err := readSessionFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		si, err = s.announceIncoming(path, conf)
	}
	if err != nil {
		return "", nil, err
	}

	err = si.check()
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}

	host := conf.LocalAddress
	if ip := net.ParseIP(si.Address); ip != nil && ip.IsMulticast() {
		host = si.Address
	}

	return net.JoinHostPort(host, strconv.Itoa(si.Port)), si, nil
}

// announceIncoming writes the session file of a receiving end that starts
// before the sender.
func (s *Stack) announceIncoming(path string, conf stack.StreamConf) (*sessionInfo, error) {
	si := sessionInfo{
		Address:     conf.LocalAddress,
		Port:        conf.LocalPort,
		PayloadType: conf.PayloadType,
		Codec:       "H265",
		ClockRate:   stack.ClockRate,
	}

	err := writeSessionFile(path, si)
	if err != nil {
		return nil, err
	}

	s.log(conf).WithFields(logrus.Fields{"sdp": path}).Debug("session file written")
	return &si, nil
}

// NewReceiver implements stack.Stack.
// The listening port is taken from the session file. If the file does not
// exist yet, it is written from the stream configuration.
func (s *Stack) NewReceiver(conf stack.StreamConf, onPacket stack.PacketHandler) (stack.Receiver, error) {
	address, si, err := s.openIncoming(conf)
	if err != nil {
		return nil, err
	}

	se := &session{
		log:         s.log(conf),
		onPacket:    onPacket,
		payloadType: &si.PayloadType,
	}
	err = se.initialize(address, conf.UDPBufferSize)
	if err != nil {
		return nil, err
	}

	return se, nil
}

// NewEcho implements stack.Stack.
func (s *Stack) NewEcho(conf stack.StreamConf, onPacket stack.PacketHandler) (stack.Receiver, error) {
	address, si, err := s.openIncoming(conf)
	if err != nil {
		return nil, err
	}

	remote, err := udpconn.ResolveRemote(conf.RemoteAddress, conf.RemotePort)
	if err != nil {
		return nil, err
	}

	se := &session{
		log:         s.log(conf),
		remote:      remote,
		onPacket:    onPacket,
		payloadType: &si.PayloadType,
	}

	se.processor = &asyncprocessor.Processor{
		BufferSize: echoQueueSize,
		OnError: func(_ context.Context, err error) {
			se.log.WithFields(logrus.Fields{"error": err}).Warn("echo stopped")
		},
	}
	err = se.processor.Initialize()
	if err != nil {
		return nil, err
	}
	se.processor.Start()

	err = se.initialize(address, conf.UDPBufferSize)
	if err != nil {
		se.processor.Close()
		return nil, err
	}

	return se, nil
}

type sender struct {
	*session
	packetizer rtp.Packetizer
}

// WriteAccessUnit implements stack.Sender.
func (s *sender) WriteAccessUnit(nalus [][]byte, ts uint32) error {
	buf, err := h264.AnnexB(nalus).Marshal()
	if err != nil {
		return err
	}

	pkts := s.packetizer.Packetize(buf, 0)

	for _, pkt := range pkts {
		pkt.Timestamp = ts

		byts, err := pkt.Marshal()
		if err != nil {
			return err
		}

		_, err = s.conn.WriteToUDP(byts, s.remote)
		if err != nil {
			return err
		}
	}

	return nil
}

// session is a UDP socket that reads RTP packets and optionally relays them.
type session struct {
	log         logrus.FieldLogger
	remote      *net.UDPAddr
	onPacket    stack.PacketHandler
	payloadType *uint8
	processor   *asyncprocessor.Processor

	conn *net.UDPConn
	done chan struct{}
}

func (s *session) initialize(address string, bufferSize int) error {
	var err error
	s.conn, err = udpconn.Listen(address, bufferSize, s.log)
	if err != nil {
		return err
	}

	if s.onPacket != nil || s.processor != nil {
		s.done = make(chan struct{})
		go s.run()
	}

	s.log.WithFields(logrus.Fields{"local": s.conn.LocalAddr().String()}).Debug("session opened")
	return nil
}

// Close implements stack.Receiver and stack.Sender.
func (s *session) Close() {
	s.conn.Close() //nolint:errcheck

	if s.done != nil {
		<-s.done
	}

	if s.processor != nil {
		s.processor.Close()
	}
}

func (s *session) run() {
	defer close(s.done)

	buf := make([]byte, maxPacketSize)
	var dropped uint64

	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if dropped != 0 {
				s.log.WithFields(logrus.Fields{"dropped": dropped}).Warn("echo queue overflowed")
			}
			return
		}
		now := time.Now()

		var pkt rtp.Packet
		err = pkt.Unmarshal(buf[:n])
		if err != nil {
			s.log.WithFields(logrus.Fields{"error": err}).Debug("invalid RTP packet")
			continue
		}

		if s.payloadType != nil && pkt.PayloadType != *s.payloadType {
			continue
		}

		if s.onPacket != nil {
			s.onPacket(&pkt, now)
		}

		if s.processor != nil {
			cpy := append([]byte(nil), buf[:n]...)
			if !s.processor.Push(func() error {
				_, err := s.conn.WriteToUDP(cpy, s.remote)
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}) {
				dropped++
			}
		}
	}
}
