package rtpstack

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/asyncprocessor"
	"github.com/bluenviron/rtpbench/internal/rtcpsender"
	"github.com/bluenviron/rtpbench/internal/udpconn"
	"github.com/bluenviron/rtpbench/pkg/ntp"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// session is one end of a RTP stream.
// It owns a RTP socket on the local port and, when RTCP is in use,
// a RTCP socket on the next port.
type session struct {
	log        logrus.FieldLogger
	conf       stack.StreamConf
	rtcpPeriod time.Duration
	onPacket   stack.PacketHandler
	echo       bool

	conn       *net.UDPConn
	remote     *net.UDPAddr
	rtcpConn   *net.UDPConn
	rtcpRemote *net.UDPAddr
	srtpOut    *srtpContext
	srtpIn     *srtpContext
	rtcpSender *rtcpsender.RTCPSender
	processor  *asyncprocessor.Processor

	readerDone     chan struct{}
	rtcpReaderDone chan struct{}
}

func (s *session) initialize(writer bool) error {
	if s.conf.SRTP != nil {
		var err error
		s.srtpIn, err = newSRTPContext(s.conf.SRTP)
		if err != nil {
			return err
		}

		s.srtpOut, err = newSRTPContext(s.conf.SRTP)
		if err != nil {
			return err
		}
	}

	if writer {
		var err error
		s.remote, err = udpconn.ResolveRemote(s.conf.RemoteAddress, s.conf.RemotePort)
		if err != nil {
			return err
		}
	}

	var err error
	s.conn, err = udpconn.Listen(s.conf.LocalHostPort(), s.conf.UDPBufferSize, s.log)
	if err != nil {
		return err
	}

	if writer {
		err = udpconn.PrepareSender(s.conn, s.remote)
		if err != nil {
			s.conn.Close() //nolint:errcheck
			return err
		}
	}

	err = s.initializeRTCP(writer)
	if err != nil {
		s.conn.Close() //nolint:errcheck
		return err
	}

	if s.echo {
		s.processor = &asyncprocessor.Processor{
			BufferSize: echoQueueSize,
			OnError: func(_ context.Context, err error) {
				s.log.WithFields(logrus.Fields{"error": err}).Warn("echo stopped")
			},
		}
		err = s.processor.Initialize()
		if err != nil {
			s.closeSockets()
			return err
		}
		s.processor.Start()
	}

	if s.onPacket != nil || s.echo {
		s.readerDone = make(chan struct{})
		go s.runReader()
	}

	s.log.WithFields(logrus.Fields{
		"local":  s.conn.LocalAddr().String(),
		"remote": s.remote,
		"srtp":   s.conf.SRTP != nil,
	}).Debug("session opened")

	return nil
}

func (s *session) initializeRTCP(writer bool) error {
	// RTCP is received on every receiver and sent only when enabled
	if writer && s.rtcpPeriod == 0 {
		return nil
	}

	var err error
	s.rtcpConn, err = udpconn.Listen(rtcpHostPort(s.conf.LocalAddress, s.conf.LocalPort), 0, s.log)
	if err != nil {
		return err
	}

	if writer {
		s.rtcpRemote = &net.UDPAddr{IP: s.remote.IP, Port: s.remote.Port + 1, Zone: s.remote.Zone}

		s.rtcpSender = &rtcpsender.RTCPSender{
			ClockRate:       stack.ClockRate,
			Period:          s.rtcpPeriod,
			WritePacketRTCP: s.writePacketRTCP,
		}
		s.rtcpSender.Initialize()
		return nil
	}

	s.rtcpReaderDone = make(chan struct{})
	go s.runRTCPReader()

	return nil
}

func rtcpHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}

func (s *session) closeSockets() {
	s.conn.Close() //nolint:errcheck
	if s.rtcpConn != nil {
		s.rtcpConn.Close() //nolint:errcheck
	}
}

// Close implements stack.Receiver and stack.Sender.
func (s *session) Close() {
	if s.rtcpSender != nil {
		s.rtcpSender.Close()
	}

	s.closeSockets()

	if s.readerDone != nil {
		<-s.readerDone
	}
	if s.rtcpReaderDone != nil {
		<-s.rtcpReaderDone
	}

	if s.processor != nil {
		s.processor.Close()
	}
}

func (s *session) writePacketRTP(pkt *rtp.Packet) error {
	buf, err := pkt.Marshal()
	if err != nil {
		return err
	}

	err = s.writeRaw(buf)
	if err != nil {
		return err
	}

	if s.rtcpSender != nil {
		s.rtcpSender.ProcessPacketRTP(pkt)
	}

	return nil
}

func (s *session) writeRaw(buf []byte) error {
	if s.srtpOut != nil {
		var err error
		buf, err = s.srtpOut.encryptRTP(nil, buf)
		if err != nil {
			return err
		}
	}

	_, err := s.conn.WriteToUDP(buf, s.remote)
	return err
}

func (s *session) writePacketRTCP(pkt rtcp.Packet) {
	buf, err := pkt.Marshal()
	if err != nil {
		s.log.WithFields(logrus.Fields{"error": err}).Warn("unable to marshal RTCP packet")
		return
	}

	if s.srtpOut != nil {
		buf, err = s.srtpOut.encryptRTCP(nil, buf)
		if err != nil {
			s.log.WithFields(logrus.Fields{"error": err}).Warn("unable to encrypt RTCP packet")
			return
		}
	}

	_, err = s.rtcpConn.WriteToUDP(buf, s.rtcpRemote)
	if err != nil {
		s.log.WithFields(logrus.Fields{"error": err}).Debug("unable to send RTCP packet")
	}
}

func (s *session) runReader() {
	defer close(s.readerDone)

	buf := make([]byte, maxPacketSize)
	var plain []byte
	if s.srtpIn != nil {
		plain = make([]byte, maxPacketSize)
	}

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

		byts := buf[:n]

		if s.srtpIn != nil {
			byts, err = s.srtpIn.decryptRTP(plain, byts)
			if err != nil {
				s.log.WithFields(logrus.Fields{"error": err}).Debug("unable to decrypt RTP packet")
				continue
			}
		}

		var pkt rtp.Packet
		err = pkt.Unmarshal(byts)
		if err != nil {
			s.log.WithFields(logrus.Fields{"error": err}).Debug("invalid RTP packet")
			continue
		}

		if s.onPacket != nil {
			s.onPacket(&pkt, now)
		}

		if s.echo {
			cpy := append([]byte(nil), byts...)
			if !s.processor.Push(func() error {
				err := s.writeRaw(cpy)
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

func (s *session) runRTCPReader() {
	defer close(s.rtcpReaderDone)

	buf := make([]byte, maxPacketSize)

	for {
		n, _, err := s.rtcpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		byts := buf[:n]

		if s.srtpIn != nil {
			byts, err = s.srtpIn.decryptRTCP(nil, byts)
			if err != nil {
				s.log.WithFields(logrus.Fields{"error": err}).Debug("unable to decrypt RTCP packet")
				continue
			}
		}

		pkts, err := rtcp.Unmarshal(byts)
		if err != nil {
			s.log.WithFields(logrus.Fields{"error": err}).Debug("invalid RTCP packet")
			continue
		}

		for _, pkt := range pkts {
			if sr, ok := pkt.(*rtcp.SenderReport); ok {
				s.log.WithFields(logrus.Fields{
					"ssrc":    sr.SSRC,
					"packets": sr.PacketCount,
					"octets":  sr.OctetCount,
					"ntp":     ntp.Decode(sr.NTPTime),
				}).Debug("sender report")
			}
		}
	}
}
