// Package readbuffer contains functions to set the buffer sizes of UDP sockets.
package readbuffer

import (
	"fmt"
	"net"
	"syscall"
)

// PacketConn is a packet connection.
type PacketConn interface {
	net.PacketConn
	SyscallConn() (syscall.RawConn, error)
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// SetReadBuffer sets the read buffer size of the UDP connection and checks that it was set correctly.
func SetReadBuffer(pc PacketConn, size int) error {
	err := pc.SetReadBuffer(size)
	if err != nil {
		return err
	}

	v, err := ReadBuffer(pc)
	if err != nil {
		return err
	}

	if v < size {
		return fmt.Errorf("unable to set read buffer size to %v (got %v), check that the operating system allows that",
			size, v)
	}

	return nil
}

// SetWriteBuffer sets the write buffer size of the UDP connection and checks that it was set correctly.
func SetWriteBuffer(pc PacketConn, size int) error {
	err := pc.SetWriteBuffer(size)
	if err != nil {
		return err
	}

	v, err := WriteBuffer(pc)
	if err != nil {
		return err
	}

	if v < size {
		return fmt.Errorf("unable to set write buffer size to %v (got %v), check that the operating system allows that",
			size, v)
	}

	return nil
}
