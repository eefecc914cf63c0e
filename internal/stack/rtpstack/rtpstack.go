// Package rtpstack sends and receives H265 and H266 over plain RTP/UDP,
// with optional SRTP and RTCP sender reports.
package rtpstack

import (
	"time"

	"github.com/bluenviron/gortsplib/v5/pkg/format/rtph265"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

const (
	rtpVersion = 2

	// maximum size of a UDP payload.
	maxPacketSize = 65507

	echoQueueSize = 1024
)

type encoder interface {
	Encode(au [][]byte) ([]*rtp.Packet, error)
}

func newEncoder(conf stack.StreamConf) (encoder, error) {
	switch conf.Format {
	case stack.FormatH266:
		e := &h266Encoder{
			PayloadType:    conf.PayloadType,
			PayloadMaxSize: conf.PayloadMaxSize,
		}
		err := e.Init()
		if err != nil {
			return nil, err
		}
		return e, nil

	default:
		e := &rtph265.Encoder{
			PayloadType:    conf.PayloadType,
			PayloadMaxSize: conf.PayloadMaxSize,
		}
		err := e.Init()
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// Stack is the plain RTP stack.
type Stack struct {
	Log logrus.FieldLogger

	// period of RTCP sender reports. Zero disables RTCP.
	RTCPPeriod time.Duration
}

// Name implements stack.Stack.
func (s *Stack) Name() string {
	return "rtp"
}

func (s *Stack) log(conf stack.StreamConf) logrus.FieldLogger {
	return logger.OrDefault(s.Log).WithFields(logrus.Fields{
		"stack":  s.Name(),
		"stream": conf.Index,
	})
}

// NewSender implements stack.Stack.
func (s *Stack) NewSender(conf stack.StreamConf, onReturn stack.PacketHandler) (stack.Sender, error) {
	enc, err := newEncoder(conf)
	if err != nil {
		return nil, err
	}

	se := &session{
		log:        s.log(conf),
		conf:       conf,
		rtcpPeriod: s.RTCPPeriod,
		onPacket:   onReturn,
	}
	err = se.initialize(true)
	if err != nil {
		return nil, err
	}

	return &sender{
		session: se,
		enc:     enc,
	}, nil
}

// NewReceiver implements stack.Stack.
func (s *Stack) NewReceiver(conf stack.StreamConf, onPacket stack.PacketHandler) (stack.Receiver, error) {
	se := &session{
		log:      s.log(conf),
		conf:     conf,
		onPacket: onPacket,
	}
	err := se.initialize(false)
	if err != nil {
		return nil, err
	}
	return se, nil
}

// NewEcho implements stack.Stack.
func (s *Stack) NewEcho(conf stack.StreamConf, onPacket stack.PacketHandler) (stack.Receiver, error) {
	se := &session{
		log:      s.log(conf),
		conf:     conf,
		onPacket: onPacket,
		echo:     true,
	}
	err := se.initialize(true)
	if err != nil {
		return nil, err
	}
	return se, nil
}

type sender struct {
	*session
	enc encoder
}

// WriteAccessUnit implements stack.Sender.
func (s *sender) WriteAccessUnit(nalus [][]byte, ts uint32) error {
	pkts, err := s.enc.Encode(nalus)
	if err != nil {
		return err
	}

	for _, pkt := range pkts {
		pkt.Timestamp = ts

		err = s.writePacketRTP(pkt)
		if err != nil {
			return err
		}
	}

	return nil
}
