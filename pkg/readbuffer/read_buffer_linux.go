//go:build linux

package readbuffer

import (
	"golang.org/x/sys/unix"
)

func getBuffer(pc PacketConn, opt int) (int, error) {
	rawConn, err := pc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var v int
	var err2 error

	err = rawConn.Control(func(fd uintptr) {
		v, err2 = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, opt)
	})
	if err != nil {
		return 0, err
	}

	if err2 != nil {
		return 0, err2
	}

	// the kernel doubles the requested value to make room for bookkeeping
	return v / 2, nil
}

// ReadBuffer returns the read buffer size.
func ReadBuffer(pc PacketConn) (int, error) {
	return getBuffer(pc, unix.SO_RCVBUF)
}

// WriteBuffer returns the write buffer size.
func WriteBuffer(pc PacketConn) (int, error) {
	return getBuffer(pc, unix.SO_SNDBUF)
}
