// Command latency-sender measures the round-trip latency of frames through a latency-echo.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench"
	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/driver"
	"github.com/bluenviron/rtpbench/pkg/framesource"
	"github.com/bluenviron/rtpbench/pkg/results"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func main() {
	driver.Main("latency-sender", conf.RegisterSenderFlags, run)
}

func run(ctx context.Context, env *driver.Env) error {
	c := env.Conf

	st, err := rtpbench.NewStack(c, env.Log)
	if err != nil {
		return err
	}

	format, err := stack.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	layout, err := framesource.ParseLayout(c.Layout)
	if err != nil {
		return err
	}

	src, err := framesource.Open(c.Input, layout, format)
	if err != nil {
		return err
	}
	defer src.Close()

	if c.Streams > 1 {
		env.Log.WithFields(logrus.Fields{"streams": c.Streams}).Warn("latency is measured on the first stream only")
	}

	s := &rtpbench.LatencySender{
		Stack:      st,
		Source:     src,
		Stream:     c.StreamConf(0),
		FPS:        c.FPS,
		StartDelay: c.StartDelay,
		Drain:      c.Drain,
		Log:        env.Log,
	}

	sum, err := s.Run(ctx)
	if err != nil {
		return err
	}

	return env.Write(results.Latency{
		Meta:   env.Meta(st.Name()),
		Frames: sum.Frames,
		Lost:   sum.Lost,
		Intra:  milliseconds(sum.Intra),
		Inter:  milliseconds(sum.Inter),
		Avg:    milliseconds(sum.Avg),
	})
}
