// Package bytecounter contains a io.ReadWriter wrapper that counts datagrams, bytes and errors.
package bytecounter

import (
	"io"
	"sync/atomic"
)

// ByteCounter is a io.ReadWriter wrapper that counts datagrams, bytes and errors.
// Every successful non-empty call counts as a datagram, which matches packet-oriented connections.
type ByteCounter struct {
	rw io.ReadWriter

	received        atomic.Uint64
	sent            atomic.Uint64
	packetsReceived atomic.Uint64
	packetsSent     atomic.Uint64
	readErrors      atomic.Uint64
	writeErrors     atomic.Uint64
}

// New allocates a ByteCounter.
func New(rw io.ReadWriter) *ByteCounter {
	return &ByteCounter{rw: rw}
}

// Read implements io.ReadWriter.
func (bc *ByteCounter) Read(p []byte) (int, error) {
	n, err := bc.rw.Read(p)
	if err != nil {
		bc.readErrors.Add(1)
		return n, err
	}

	if n > 0 {
		bc.received.Add(uint64(n))
		bc.packetsReceived.Add(1)
	}
	return n, nil
}

// Write implements io.ReadWriter.
func (bc *ByteCounter) Write(p []byte) (int, error) {
	n, err := bc.rw.Write(p)
	if err != nil {
		bc.writeErrors.Add(1)
		return n, err
	}

	if n > 0 {
		bc.sent.Add(uint64(n))
		bc.packetsSent.Add(1)
	}
	return n, nil
}

// BytesReceived returns the number of bytes received.
func (bc *ByteCounter) BytesReceived() uint64 {
	return bc.received.Load()
}

// BytesSent returns the number of bytes sent.
func (bc *ByteCounter) BytesSent() uint64 {
	return bc.sent.Load()
}

// PacketsReceived returns the number of datagrams received.
func (bc *ByteCounter) PacketsReceived() uint64 {
	return bc.packetsReceived.Load()
}

// PacketsSent returns the number of datagrams sent.
func (bc *ByteCounter) PacketsSent() uint64 {
	return bc.packetsSent.Load()
}

// ReadErrors returns the number of read errors.
func (bc *ByteCounter) ReadErrors() uint64 {
	return bc.readErrors.Load()
}

// WriteErrors returns the number of write errors.
func (bc *ByteCounter) WriteErrors() uint64 {
	return bc.writeErrors.Load()
}
