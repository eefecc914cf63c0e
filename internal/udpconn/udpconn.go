// Package udpconn opens UDP sockets used by RTP streams.
package udpconn

import (
	"fmt"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"

	"github.com/bluenviron/rtpbench/pkg/readbuffer"
)

// multicastTTL is the TTL of outgoing multicast packets.
const multicastTTL = 16

// Listen binds a UDP socket on address.
// When the host part of address is a multicast group, the socket
// is bound to the group port and joins the group on every
// multicast-capable interface.
// A non-zero bufferSize sets the kernel read and write buffers.
func Listen(address string, bufferSize int, log logrus.FieldLogger) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}

	var conn *net.UDPConn

	if addr.IP.IsMulticast() {
		conn, err = listenMulticast(addr)
	} else {
		conn, err = net.ListenUDP("udp", addr)
	}
	if err != nil {
		return nil, err
	}

	if bufferSize != 0 {
		// not fatal, the benchmark can still run with smaller buffers
		err = readbuffer.SetReadBuffer(conn, bufferSize)
		if err != nil {
			log.WithFields(logrus.Fields{"address": address}).Warn(err)
		}

		err = readbuffer.SetWriteBuffer(conn, bufferSize)
		if err != nil {
			log.WithFields(logrus.Fields{"address": address}).Warn(err)
		}
	}

	return conn, nil
}

func listenMulticast(addr *net.UDPAddr) (*net.UDPConn, error) {
	if addr.IP.To4() == nil {
		return nil, fmt.Errorf("IPv6 multicast is not supported")
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: addr.IP, Port: addr.Port})
	if err != nil {
		return nil, err
	}

	intfs, err := net.Interfaces()
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	p := ipv4.NewPacketConn(conn)
	joined := 0

	for _, intf := range intfs {
		if (intf.Flags & net.FlagMulticast) == 0 {
			continue
		}

		err = p.JoinGroup(&intf, &net.UDPAddr{IP: addr.IP})
		if err != nil {
			continue
		}
		joined++
	}

	if joined == 0 {
		conn.Close() //nolint:errcheck
		return nil, fmt.Errorf("no multicast-capable interfaces found")
	}

	err = p.SetMulticastTTL(multicastTTL)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	err = p.SetMulticastLoopback(true)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	return conn, nil
}

// PrepareSender configures conn for sending to remote.
// Packets to multicast groups get a TTL large enough to cross routers.
func PrepareSender(conn *net.UDPConn, remote *net.UDPAddr) error {
	if !remote.IP.IsMulticast() || remote.IP.To4() == nil {
		return nil
	}
	return ipv4.NewPacketConn(conn).SetMulticastTTL(multicastTTL)
}

// ResolveRemote resolves the remote address of a stream.
func ResolveRemote(host string, port int) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
}
