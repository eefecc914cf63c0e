// Package driver contains the scaffolding shared by the commands.
package driver

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/cpuload"
	"github.com/bluenviron/rtpbench/internal/logger"
	"github.com/bluenviron/rtpbench/pkg/results"
)

// Env is the environment of a command run.
type Env struct {
	Conf *conf.Conf
	Log  *logrus.Logger

	sample *cpuload.Sample
}

// Meta returns the fields shared by result records,
// including the CPU usage since the run started.
func (e *Env) Meta(stack string) results.Meta {
	m := results.NewMeta(stack)

	if e.sample != nil {
		u, err := e.sample.Stop()
		if err != nil {
			e.Log.WithFields(logrus.Fields{"error": err}).Warn("unable to measure CPU usage")
		} else {
			m.CPU = u.System
			m.ProcessCPU = u.Process
		}
	}

	return m
}

// Write logs a record and appends it to the result file, when one is configured.
func (e *Env) Write(rec results.Record) error {
	e.Log.Info(rec.Text())

	if e.Conf.Result == "" {
		return nil
	}

	format, err := results.ParseFormat(e.Conf.ResultFormat)
	if err != nil {
		return err
	}

	err = results.Write(e.Conf.Result, format, rec)
	if err != nil {
		return fmt.Errorf("unable to write result: %w", err)
	}

	return nil
}

// RunFunc is the body of a command.
type RunFunc func(ctx context.Context, env *Env) error

// Main runs a command and exits.
func Main(name string, register conf.RegisterFunc, run RunFunc) {
	os.Exit(Run(name, os.Args[1:], os.Stderr, register, run))
}

// Run runs a command and returns its exit code.
func Run(name string, args []string, stderr io.Writer, register conf.RegisterFunc, run RunFunc) int {
	c, err := conf.Load(name, args, register)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 2
	}

	log, err := logger.New(c.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 2
	}
	log.SetOutput(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &Env{
		Conf: c,
		Log:  log,
	}

	env.sample, err = cpuload.Start()
	if err != nil {
		log.WithFields(logrus.Fields{"error": err}).Warn("unable to measure CPU usage")
	}

	err = run(ctx, env)
	if err != nil {
		log.WithFields(logrus.Fields{"error": err}).Error(name + " failed")
		return 1
	}

	return 0
}
