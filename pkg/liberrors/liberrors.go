// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
	"time"
)

// ErrUnknownStack is returned when a stack name is not registered.
type ErrUnknownStack struct {
	Name string
}

// Error implements the error interface.
func (e ErrUnknownStack) Error() string {
	return fmt.Sprintf("unknown stack '%s'", e.Name)
}

// ErrFormatUnsupported is returned when a stack does not support a video format.
type ErrFormatUnsupported struct {
	Stack  string
	Format fmt.Stringer
}

// Error implements the error interface.
func (e ErrFormatUnsupported) Error() string {
	return fmt.Sprintf("stack '%s' does not support format %v", e.Stack, e.Format)
}

// ErrSRTPUnsupported is returned when a stack does not support SRTP.
type ErrSRTPUnsupported struct {
	Stack string
}

// Error implements the error interface.
func (e ErrSRTPUnsupported) Error() string {
	return fmt.Sprintf("stack '%s' does not support SRTP", e.Stack)
}

// ErrChunkFileInvalid is returned when a sidecar file is not a sequence of uint64.
type ErrChunkFileInvalid struct {
	Path string
	Size int
}

// Error implements the error interface.
func (e ErrChunkFileInvalid) Error() string {
	return fmt.Sprintf("chunk file %s has invalid size %d", e.Path, e.Size)
}

// ErrChunkSizesExceedFile is returned when chunk sizes exceed the elementary stream.
type ErrChunkSizesExceedFile struct {
	Sum uint64
	Len uint64
}

// Error implements the error interface.
func (e ErrChunkSizesExceedFile) Error() string {
	return fmt.Sprintf("chunk sizes sum to %d bytes, but the file contains %d", e.Sum, e.Len)
}

// ErrNoFrames is returned when an input file contains no frame.
type ErrNoFrames struct {
	Path string
}

// Error implements the error interface.
func (e ErrNoFrames) Error() string {
	return fmt.Sprintf("no frames found in %s", e.Path)
}

// ErrDuplicateTimestamp is returned when two frames are sent with the same RTP timestamp.
type ErrDuplicateTimestamp struct {
	Timestamp uint32
}

// Error implements the error interface.
func (e ErrDuplicateTimestamp) Error() string {
	return fmt.Sprintf("a frame with timestamp %d is already in flight", e.Timestamp)
}

// ErrInvalidParameter is returned when a numeric parameter is out of range.
type ErrInvalidParameter struct {
	Name  string
	Value any
}

// Error implements the error interface.
func (e ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Name, e.Value)
}

// ErrNoPackets is returned when nothing arrives before the start timeout.
type ErrNoPackets struct {
	Timeout time.Duration
}

// Error implements the error interface.
func (e ErrNoPackets) Error() string {
	return fmt.Sprintf("no packets received within %v", e.Timeout)
}
