package results

import (
	"fmt"
	"strconv"
	"time"
)

// Send is the result of a throughput sender.
type Send struct {
	Meta
	Streams  int
	Bytes    uint64
	Duration time.Duration
}

// Text implements Record.
func (r Send) Text() string {
	ms := r.Duration.Milliseconds()
	return fmt.Sprintf("%d bytes, %d kB, %d MB took %d ms %d s",
		r.Bytes, r.Bytes/1000, r.Bytes/1000000, ms, ms/1000)
}

// CSVHeader implements Record.
func (r Send) CSVHeader() []string {
	return append(r.header(), "streams", "bytes", "duration_ms")
}

// CSVRow implements Record.
func (r Send) CSVRow() []string {
	return append(r.row(), strconv.Itoa(r.Streams), formatUint(r.Bytes), formatMillis(r.Duration))
}

// Receive is the result of a throughput receiver.
type Receive struct {
	Meta
	Streams  int
	Bytes    uint64
	Packets  uint64
	Frames   uint64
	Lost     uint64
	Duration time.Duration
	// Expected is the number of frames each stream should have received.
	// Zero disables the check.
	Expected uint64
	// frames received by each stream. When empty, the total is checked.
	StreamFrames []uint64
}

// Discarded reports whether a stream received a different number of frames than expected.
func (r Receive) Discarded() bool {
	if r.Expected == 0 {
		return false
	}

	if len(r.StreamFrames) == 0 {
		return r.Frames != r.Expected*uint64(max(r.Streams, 1))
	}

	for _, frames := range r.StreamFrames {
		if frames != r.Expected {
			return true
		}
	}
	return false
}

// Text implements Record.
func (r Receive) Text() string {
	s := fmt.Sprintf("%d bytes, %d packets, %d frames, %d lost, took %d ms",
		r.Bytes, r.Packets, r.Frames, r.Lost, r.Duration.Milliseconds())
	if r.Discarded() {
		s = "discard " + s
	}
	return s
}

// CSVHeader implements Record.
func (r Receive) CSVHeader() []string {
	return append(r.header(), "streams", "bytes", "packets", "frames", "lost", "duration_ms", "discarded")
}

// CSVRow implements Record.
func (r Receive) CSVRow() []string {
	return append(r.row(),
		strconv.Itoa(r.Streams),
		formatUint(r.Bytes),
		formatUint(r.Packets),
		formatUint(r.Frames),
		formatUint(r.Lost),
		formatMillis(r.Duration),
		strconv.FormatBool(r.Discarded()))
}

// Latency is the result of a latency sender.
type Latency struct {
	Meta
	Frames int
	Lost   int
	// latencies in milliseconds
	Intra float64
	Inter float64
	Avg   float64
}

// Text implements Record.
func (r Latency) Text() string {
	return fmt.Sprintf("%d: intra %f, inter %f, avg %f", r.Frames, r.Intra, r.Inter, r.Avg)
}

// CSVHeader implements Record.
func (r Latency) CSVHeader() []string {
	return append(r.header(), "frames", "lost", "intra_ms", "inter_ms", "avg_ms")
}

// CSVRow implements Record.
func (r Latency) CSVRow() []string {
	return append(r.row(),
		strconv.Itoa(r.Frames),
		strconv.Itoa(r.Lost),
		formatFloat(r.Intra),
		formatFloat(r.Inter),
		formatFloat(r.Avg))
}

// Goodput is the result of a round of the raw socket benchmark.
type Goodput struct {
	Meta
	Round      int
	PacketSize int
	Sent       uint64
	Received   uint64
	Duration   time.Duration
}

// Gbps returns the goodput in gigabits per second.
func (r Goodput) Gbps() float64 {
	return r.Mbps() / 1000
}

// Mbps returns the goodput in megabits per second.
func (r Goodput) Mbps() float64 {
	secs := r.Duration.Seconds()
	if secs == 0 {
		return 0
	}
	return float64(r.Received*uint64(r.PacketSize)) * 8 / secs / 1e6
}

// Megabytes returns the amount of data transferred, in megabytes.
func (r Goodput) Megabytes() float64 {
	return float64(r.Received*uint64(r.PacketSize)) / 1e6
}

// ReceivedPercent returns the share of sent packets that were received.
func (r Goodput) ReceivedPercent() float64 {
	if r.Sent == 0 {
		return 0
	}
	return float64(r.Received) / float64(r.Sent) * 100
}

// Text implements Record.
func (r Goodput) Text() string {
	return fmt.Sprintf("round %d: %.3f Gb/s, %.3f Mb/s, %.3f MB transferred, %.2f%% received",
		r.Round, r.Gbps(), r.Mbps(), r.Megabytes(), r.ReceivedPercent())
}

// CSVHeader implements Record.
func (r Goodput) CSVHeader() []string {
	return append(r.header(), "round", "packet_size", "sent", "received", "duration_ms", "mbps")
}

// CSVRow implements Record.
func (r Goodput) CSVRow() []string {
	return append(r.row(),
		strconv.Itoa(r.Round),
		strconv.Itoa(r.PacketSize),
		formatUint(r.Sent),
		formatUint(r.Received),
		formatMillis(r.Duration),
		formatFloat(r.Mbps()))
}
