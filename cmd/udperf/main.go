// Command udperf measures raw UDP goodput between two hosts.
package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/driver"
	"github.com/bluenviron/rtpbench/internal/udperf"
)

func main() {
	driver.Main("udperf", conf.RegisterUDPerfFlags, run)
}

func run(ctx context.Context, env *driver.Env) error {
	c := env.Conf

	switch c.UDPerf.Mode {
	case "server":
		s := &udperf.Server{
			Address:     c.LocalAddress,
			Port:        c.UDPerf.Port,
			PacketSize:  c.UDPerf.PacketSize,
			Rounds:      c.UDPerf.Rounds,
			Packets:     c.UDPerf.Packets,
			IdleTimeout: c.UDPerf.IdleTimeout,
			BufferSize:  c.UDPBufferSize,
			Log:         env.Log,
		}

		counts, err := s.Run(ctx)
		if err != nil {
			return err
		}

		env.Log.WithFields(logrus.Fields{"received": counts}).Info("all rounds finished")
		return nil

	case "client":
		cl := &udperf.Client{
			Address:    c.RemoteAddress,
			Port:       c.UDPerf.Port,
			PacketSize: c.UDPerf.PacketSize,
			Rounds:     c.UDPerf.Rounds,
			Packets:    c.UDPerf.Packets,
			BufferSize: c.UDPBufferSize,
			Log:        env.Log,
		}

		rounds, err := cl.Run(ctx)
		if err != nil {
			return err
		}

		meta := env.Meta("udp")
		for _, r := range rounds {
			r.Meta = meta
			err = env.Write(r)
			if err != nil {
				return err
			}
		}

		env.Log.Infof("average goodput: %.2f Gb/s", udperf.AverageGbps(rounds))
		return nil

	default:
		return fmt.Errorf("invalid mode '%s'", c.UDPerf.Mode)
	}
}
