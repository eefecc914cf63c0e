// Command sender replays an elementary stream over the selected stack.
package main

import (
	"context"

	"github.com/bluenviron/rtpbench"
	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/driver"
	"github.com/bluenviron/rtpbench/pkg/framesource"
	"github.com/bluenviron/rtpbench/pkg/results"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

func main() {
	driver.Main("sender", conf.RegisterSenderFlags, run)
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

	s := &rtpbench.Sender{
		Stack:      st,
		Source:     src,
		Streams:    c.StreamConfs(),
		FPS:        c.FPS,
		Rounds:     c.Rounds,
		StartDelay: c.StartDelay,
		Log:        env.Log,
	}

	stats, err := s.Run(ctx)
	if err != nil {
		return err
	}

	return env.Write(results.Send{
		Meta:     env.Meta(st.Name()),
		Streams:  stats.Streams,
		Bytes:    stats.Bytes,
		Duration: stats.Duration,
	})
}
