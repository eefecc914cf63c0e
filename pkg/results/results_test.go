package results

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendText(t *testing.T) {
	r := Send{Bytes: 123456789, Duration: 10500 * time.Millisecond}
	require.Equal(t, "123456789 bytes, 123456 kB, 123 MB took 10500 ms 10 s", r.Text())
}

func TestReceiveText(t *testing.T) {
	r := Receive{
		Streams:  1,
		Bytes:    1000,
		Packets:  3,
		Frames:   601,
		Duration: 2 * time.Second,
		Expected: 601,
	}
	require.Equal(t, "1000 bytes, 3 packets, 601 frames, 0 lost, took 2000 ms", r.Text())

	r.Frames = 600
	require.Equal(t, "discard 1000 bytes, 3 packets, 600 frames, 0 lost, took 2000 ms", r.Text())

	r.Expected = 0
	require.False(t, r.Discarded())
}

func TestReceiveDiscardedPerStream(t *testing.T) {
	r := Receive{
		Streams:      2,
		Frames:       1202,
		Expected:     601,
		StreamFrames: []uint64{602, 600},
	}
	require.True(t, r.Discarded())

	r.StreamFrames = []uint64{601, 601}
	require.False(t, r.Discarded())
}

func TestLatencyText(t *testing.T) {
	r := Latency{Frames: 601, Intra: 2.5, Inter: 1.25, Avg: 1.3}
	require.Equal(t, "601: intra 2.500000, inter 1.250000, avg 1.300000", r.Text())
}

func TestGoodput(t *testing.T) {
	r := Goodput{
		Round:      1,
		PacketSize: 1000,
		Sent:       1000,
		Received:   500,
		Duration:   time.Second,
	}
	require.Equal(t, 4.0, r.Mbps())
	require.Equal(t, 0.004, r.Gbps())
	require.Equal(t, 0.5, r.Megabytes())
	require.Equal(t, 50.0, r.ReceivedPercent())
	require.Equal(t, "round 1: 0.004 Gb/s, 4.000 Mb/s, 0.500 MB transferred, 50.00% received", r.Text())
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "results.txt")

	for range 2 {
		err := Write(path, FormatText, Send{Bytes: 1000, Duration: time.Second})
		require.NoError(t, err)
	}

	byts, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "1000 bytes, 1 kB, 0 MB took 1000 ms 1 s\n"+
		"1000 bytes, 1 kB, 0 MB took 1000 ms 1 s\n", string(byts))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	meta := NewMeta("rtp")
	require.NotEmpty(t, meta.RunID)

	for range 2 {
		err := Write(path, FormatCSV, Latency{Meta: meta, Frames: 10, Intra: 1, Inter: 2, Avg: 1.5})
		require.NoError(t, err)
	}

	byts, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(byts)), "\n")
	require.Equal(t, []string{
		"run_id,stack,cpu,process_cpu,frames,lost,intra_ms,inter_ms,avg_ms",
		meta.RunID + ",rtp,0.000,0.000,10,0,1.000,2.000,1.500",
		meta.RunID + ",rtp,0.000,0.000,10,0,1.000,2.000,1.500",
	}, lines)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	_, err = ParseFormat("json")
	require.EqualError(t, err, "invalid result format 'json'")
}
