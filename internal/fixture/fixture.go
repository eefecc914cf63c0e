// Package fixture prepares benchmark input by encoding raw YUV video.
package fixture

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/annexb"
	"github.com/bluenviron/rtpbench/pkg/chunkfile"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/mmapfile"
)

// DefaultBinary is the encoder executable used when none is set.
const DefaultBinary = "kvazaar"

// OutputName returns the name of the elementary stream produced from input.
func OutputName(input string) string {
	out := strings.TrimSuffix(input, filepath.Ext(input)) + ".hevc"
	if out == input {
		dir, file := filepath.Split(out)
		out = dir + "out_" + file
	}
	return out
}

// Result describes the produced files.
type Result struct {
	Output  string
	Sidecar string
	Frames  int
	Bytes   uint64
}

// Encoder runs an external HEVC encoder over a YUV 4:2:0 file and writes
// the elementary stream plus its chunk-size sidecar.
type Encoder struct {
	// encoder executable (optional).
	Binary string
	Input  string
	Width  int
	Height int
	QP     int
	FPS    int
	// intra period, in frames.
	Period int
	Preset string
	Log    logrus.FieldLogger

	// allocates the encoder process (optional).
	// It defaults to exec.CommandContext.
	Command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func (e *Encoder) validate() error {
	for _, p := range []struct {
		name  string
		value int
	}{
		{"width", e.Width},
		{"height", e.Height},
		{"QP", e.QP},
		{"FPS", e.FPS},
		{"intra period", e.Period},
	} {
		if p.value <= 0 {
			return liberrors.ErrInvalidParameter{Name: p.name, Value: p.value}
		}
	}

	if e.Preset == "" {
		return liberrors.ErrInvalidParameter{Name: "preset", Value: "''"}
	}
	if e.Input == "" {
		return liberrors.ErrInvalidParameter{Name: "input", Value: "''"}
	}

	return nil
}

func (e *Encoder) args(output string) []string {
	return []string{
		"-i", e.Input,
		"--input-res", strconv.Itoa(e.Width) + "x" + strconv.Itoa(e.Height),
		"-o", output,
		"--qp", strconv.Itoa(e.QP),
		"--input-fps", strconv.Itoa(e.FPS),
		"--period", strconv.Itoa(e.Period),
		"--preset", e.Preset,
		"--hash", "none",
	}
}

// Run encodes the input and writes the sidecar.
func (e *Encoder) Run(ctx context.Context) (*Result, error) {
	err := e.validate()
	if err != nil {
		return nil, err
	}

	log := logger.OrDefault(e.Log)

	binary := e.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	command := e.Command
	if command == nil {
		command = exec.CommandContext
	}

	res := &Result{
		Output:  OutputName(e.Input),
		Sidecar: chunkfile.FileName(e.Input),
	}

	log.WithFields(logrus.Fields{
		"input":  e.Input,
		"output": res.Output,
		"res":    strconv.Itoa(e.Width) + "x" + strconv.Itoa(e.Height),
		"fps":    e.FPS,
		"qp":     e.QP,
	}).Info("encoding")

	cmd := command(ctx, binary, e.args(res.Output)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", binary, err, strings.TrimSpace(string(out)))
	}
	log.Debug(string(out))

	f, err := mmapfile.Open(res.Output)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if f.Len() == 0 {
		return nil, liberrors.ErrNoFrames{Path: res.Output}
	}

	sizes, err := annexb.AccessUnitSizes(f.Data())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", res.Output, err)
	}

	chunks := make([]uint64, len(sizes))
	for i, size := range sizes {
		chunks[i] = uint64(size)
	}

	err = chunkfile.Write(res.Sidecar, chunks)
	if err != nil {
		return nil, err
	}

	res.Frames = len(sizes)
	res.Bytes = uint64(f.Len())

	return res, nil
}
