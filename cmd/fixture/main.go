// Command fixture encodes raw YUV video into benchmark input.
package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/driver"
	"github.com/bluenviron/rtpbench/internal/fixture"
)

func main() {
	driver.Main("fixture", conf.RegisterFixtureFlags, run)
}

func run(ctx context.Context, env *driver.Env) error {
	c := env.Conf

	e := &fixture.Encoder{
		Binary: c.Fixture.Encoder,
		Input:  c.Input,
		Width:  c.Fixture.Width,
		Height: c.Fixture.Height,
		QP:     c.Fixture.QP,
		FPS:    c.Fixture.FPS,
		Period: c.Fixture.Period,
		Preset: c.Fixture.Preset,
		Log:    env.Log,
	}

	res, err := e.Run(ctx)
	if err != nil {
		return err
	}

	env.Log.WithFields(logrus.Fields{
		"output":  res.Output,
		"sidecar": res.Sidecar,
		"frames":  res.Frames,
		"bytes":   res.Bytes,
	}).Info("fixture written")

	return nil
}
