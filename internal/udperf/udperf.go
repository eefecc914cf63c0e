// Package udperf measures raw UDP goodput.
//
// The client floods the server with datagrams in rounds. After each round
// the server reports, on a TCP control connection bound to the next port,
// how many datagrams it received.
package udperf

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/internal/udpconn"
	"github.com/bluenviron/rtpbench/pkg/bytecounter"
	"github.com/bluenviron/rtpbench/pkg/results"
)

const (
	// DefaultPort is the default UDP port.
	DefaultPort = 8888

	// DefaultPacketSize is the default datagram size.
	DefaultPacketSize = 1458

	// DefaultRounds is the default number of rounds.
	DefaultRounds = 10

	// DefaultPackets is the default number of datagrams per round.
	DefaultPackets = 350000

	// DefaultIdleTimeout is the default silence that ends a round.
	DefaultIdleTimeout = 2 * time.Second
)

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// closeOnDone closes c when ctx is done, unblocking pending I/O.
// The returned function stops the watcher.
func closeOnDone(ctx context.Context, c io.Closer) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Close() //nolint:errcheck
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Server receives datagrams and reports how many arrived in each round.
type Server struct {
	Address     string
	Port        int
	PacketSize  int
	Rounds      int
	Packets     int
	IdleTimeout time.Duration
	// size of the kernel receive buffer. Zero leaves the system default.
	BufferSize int
	Log        logrus.FieldLogger

	// called when sockets are ready (optional).
	OnReady func()
}

func (s *Server) setDefaults() {
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.PacketSize == 0 {
		s.PacketSize = DefaultPacketSize
	}
	if s.Rounds == 0 {
		s.Rounds = DefaultRounds
	}
	if s.Packets == 0 {
		s.Packets = DefaultPackets
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
}

// Run serves a single client and returns the number of datagrams received in each round.
func (s *Server) Run(ctx context.Context) ([]uint32, error) {
	s.setDefaults()
	log := logger.OrDefault(s.Log)

	conn, err := udpconn.Listen(hostPort(s.Address, s.Port), s.BufferSize, log)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ln, err := net.Listen("tcp", hostPort(s.Address, s.Port+1))
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	stop := closeOnDone(ctx, conn)
	defer stop()
	stopLn := closeOnDone(ctx, ln)
	defer stopLn()

	if s.OnReady != nil {
		s.OnReady()
	}

	log.WithFields(logrus.Fields{
		"udp": conn.LocalAddr().String(),
		"tcp": ln.Addr().String(),
	}).Info("waiting for client")

	ctrl, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer ctrl.Close()

	stopCtrl := closeOnDone(ctx, ctrl)
	defer stopCtrl()

	bc := bytecounter.New(conn)
	buf := make([]byte, max(s.PacketSize, 1))
	counts := make([]uint32, 0, s.Rounds)

	for round := range s.Rounds {
		begin := bc.PacketsReceived()

		for bc.PacketsReceived()-begin != uint64(s.Packets) {
			err = conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
			if err != nil {
				return nil, err
			}

			_, err = bc.Read(buf)
			if err != nil {
				if errors.Is(err, os.ErrDeadlineExceeded) {
					break
				}
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, err
			}
		}

		count := uint32(bc.PacketsReceived() - begin)
		counts = append(counts, count)

		log.WithFields(logrus.Fields{
			"round":    round,
			"received": count,
		}).Debug("round finished")

		err = binary.Write(ctrl, binary.LittleEndian, count)
		if err != nil {
			return nil, err
		}
	}

	return counts, nil
}

// Client floods a Server and measures goodput.
type Client struct {
	Address    string
	Port       int
	PacketSize int
	Rounds     int
	Packets    int
	// size of the kernel send buffer. Zero leaves the system default.
	BufferSize int
	Log        logrus.FieldLogger
}

func (c *Client) setDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PacketSize == 0 {
		c.PacketSize = DefaultPacketSize
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	if c.Packets == 0 {
		c.Packets = DefaultPackets
	}
}

// Run executes all rounds and returns their results.
func (c *Client) Run(ctx context.Context) ([]results.Goodput, error) {
	c.setDefaults()
	log := logger.OrDefault(c.Log)

	ctrl, err := (&net.Dialer{}).DialContext(ctx, "tcp", hostPort(c.Address, c.Port+1))
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()

	stopCtrl := closeOnDone(ctx, ctrl)
	defer stopCtrl()

	remote, err := udpconn.ResolveRemote(c.Address, c.Port)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if c.BufferSize > 0 {
		err = conn.SetWriteBuffer(c.BufferSize)
		if err != nil {
			log.WithFields(logrus.Fields{"error": err}).Warn("unable to set write buffer size")
		}
	}

	bc := bytecounter.New(conn)
	payload := make([]byte, c.PacketSize)
	rounds := make([]results.Goodput, 0, c.Rounds)

	for round := range c.Rounds {
		start := time.Now()

		for range c.Packets {
			// a full socket buffer or a refused port only drops the datagram
			bc.Write(payload) //nolint:errcheck
		}

		elapsed := time.Since(start)

		var received uint32
		err = binary.Read(ctrl, binary.LittleEndian, &received)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		r := results.Goodput{
			Round:      round,
			PacketSize: c.PacketSize,
			Sent:       uint64(c.Packets),
			Received:   uint64(received),
			Duration:   elapsed,
		}
		rounds = append(rounds, r)

		log.WithFields(logrus.Fields{
			"round":        round,
			"write_errors": bc.WriteErrors(),
		}).Info(r.Text())
	}

	return rounds, nil
}

// AverageGbps returns the mean goodput of the rounds.
func AverageGbps(rounds []results.Goodput) float64 {
	if len(rounds) == 0 {
		return 0
	}

	var sum float64
	for _, r := range rounds {
		sum += r.Gbps()
	}
	return sum / float64(len(rounds))
}
