// Command latency-echo sends back every frame it receives.
package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench"
	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/driver"
)

func main() {
	driver.Main("latency-echo", conf.RegisterReceiverFlags, run)
}

func run(ctx context.Context, env *driver.Env) error {
	c := env.Conf

	st, err := rtpbench.NewStack(c, env.Log)
	if err != nil {
		return err
	}

	e := &rtpbench.Echo{
		Stack:        st,
		Streams:      c.StreamConfs(),
		Timeout:      c.Timeout,
		StartTimeout: c.StartTimeout,
		Log:          env.Log,
	}

	snap, err := e.Run(ctx)
	if err != nil {
		return err
	}

	env.Log.WithFields(logrus.Fields{
		"packets": snap.Packets,
		"frames":  snap.Frames,
		"lost":    snap.Lost,
	}).Info("echo finished")

	return nil
}
