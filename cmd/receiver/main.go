// Command receiver counts what arrives on one or more streams.
package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench"
	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/driver"
	"github.com/bluenviron/rtpbench/pkg/results"
)

func main() {
	driver.Main("receiver", conf.RegisterReceiverFlags, run)
}

func run(ctx context.Context, env *driver.Env) error {
	c := env.Conf

	st, err := rtpbench.NewStack(c, env.Log)
	if err != nil {
		return err
	}

	r := &rtpbench.Receiver{
		Stack:        st,
		Streams:      c.StreamConfs(),
		Timeout:      c.Timeout,
		StartTimeout: c.StartTimeout,
		Expected:     uint64(c.Expected),
		Decode:       bool(c.Decode),
		Log:          env.Log,
	}

	snap, err := r.Run(ctx)
	if err != nil {
		return err
	}

	rec := results.Receive{
		Meta:     env.Meta(st.Name()),
		Streams:  c.Streams,
		Bytes:    snap.Bytes,
		Packets:  snap.Packets,
		Frames:   snap.Frames,
		Lost:     snap.Lost,
		Duration: snap.Duration(),
		Expected: uint64(c.Expected),

		StreamFrames: snap.StreamFrames,
	}

	if rec.Discarded() {
		env.Log.WithFields(logrus.Fields{
			"frames":   rec.StreamFrames,
			"expected": rec.Expected,
		}).Warn("frame count of a stream differs from the expected one")
	}

	if snap.DecodeErrors != 0 {
		env.Log.WithFields(logrus.Fields{"errors": snap.DecodeErrors}).Warn("some frames could not be decoded")
	}

	return env.Write(rec)
}
