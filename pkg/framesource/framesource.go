// Package framesource slices elementary streams into frames ready to be sent.
package framesource

import (
	"fmt"

	"github.com/bluenviron/rtpbench/pkg/annexb"
	"github.com/bluenviron/rtpbench/pkg/chunkfile"
	"github.com/bluenviron/rtpbench/pkg/latency"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/mmapfile"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// Layout is the way frame boundaries are stored.
type Layout int

// layouts.
const (
	// LayoutSidecar reads frame sizes from a chunk-size sidecar file.
	LayoutSidecar Layout = iota
	// LayoutPrefixed reads frame sizes from a uint64 prefix before every frame.
	LayoutPrefixed
	// LayoutAnnexB finds frame boundaries by parsing NAL unit headers.
	LayoutAnnexB
)

var layoutLabels = map[Layout]string{
	LayoutSidecar:  "sidecar",
	LayoutPrefixed: "prefixed",
	LayoutAnnexB:   "annexb",
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	if s, ok := layoutLabels[l]; ok {
		return s
	}
	return "unknown"
}

// ParseLayout parses a layout name.
func ParseLayout(s string) (Layout, error) {
	for l, label := range layoutLabels {
		if label == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("invalid layout '%s'", s)
}

// Frame is an encoded frame.
type Frame struct {
	// Data is the frame in Annex-B format.
	Data  []byte
	NALUs [][]byte
	Kind  latency.FrameKind
}

// Source is a sliced elementary stream.
type Source struct {
	Frames []Frame

	file  *mmapfile.File
	bytes uint64
}

// Open maps an elementary stream and slices it into frames.
func Open(path string, layout Layout, format stack.Format) (*Source, error) {
	if layout == LayoutAnnexB && format != stack.FormatH265 {
		return nil, fmt.Errorf("layout %v supports only H265", layout)
	}

	f, err := mmapfile.Open(path)
	if err != nil {
		return nil, err
	}

	chunks, err := slice(path, f.Data(), layout)
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}

	s, err := fromChunks(chunks, format)
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(s.Frames) == 0 {
		f.Close() //nolint:errcheck
		return nil, liberrors.ErrNoFrames{Path: path}
	}

	s.file = f
	return s, nil
}

// FromAccessUnits builds a source from frames already in memory.
func FromAccessUnits(chunks [][]byte, format stack.Format) (*Source, error) {
	return fromChunks(chunks, format)
}

func slice(path string, data []byte, layout Layout) ([][]byte, error) {
	switch layout {
	case LayoutSidecar:
		sizes, err := chunkfile.Read(chunkfile.FileName(path))
		if err != nil {
			return nil, err
		}
		return chunkfile.SplitSidecar(data, sizes)

	case LayoutPrefixed:
		return chunkfile.SplitPrefixed(data)

	case LayoutAnnexB:
		if len(data) == 0 {
			return nil, nil
		}

		sizes, err := annexb.AccessUnitSizes(data)
		if err != nil {
			return nil, err
		}

		chunks := make([][]byte, len(sizes))
		pos := 0
		for i, size := range sizes {
			chunks[i] = data[pos : pos+size]
			pos += size
		}
		return chunks, nil
	}

	return nil, fmt.Errorf("invalid layout %v", layout)
}

func fromChunks(chunks [][]byte, format stack.Format) (*Source, error) {
	s := &Source{
		Frames: make([]Frame, len(chunks)),
	}

	for i, chunk := range chunks {
		nalus, err := annexb.Split(chunk)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		s.Frames[i] = Frame{
			Data:  chunk,
			NALUs: nalus,
			Kind:  latency.Classify(format, nalus),
		}
		s.bytes += uint64(len(chunk))
	}

	return s, nil
}

// Bytes returns the total size of the frames.
func (s *Source) Bytes() uint64 {
	return s.bytes
}

// Close releases the underlying file.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
