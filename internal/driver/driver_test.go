package driver

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/pkg/results"
)

func registerNothing(*flag.FlagSet, *conf.Conf) {}

func registerResult(fs *flag.FlagSet, c *conf.Conf) {
	fs.StringVar(&c.Result, "result", c.Result, "")
	fs.StringVar(&c.ResultFormat, "result-format", c.ResultFormat, "")
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "res", "send.txt")

	var stderr bytes.Buffer

	code := Run("sender", []string{"-result", path}, &stderr, registerResult, func(_ context.Context, env *Env) error {
		return env.Write(results.Send{
			Meta:  env.Meta("rtp"),
			Bytes: 2000000,
		})
	})
	require.Equal(t, 0, code)
	require.Contains(t, stderr.String(), "2000000 bytes, 2000 kB, 2 MB took 0 ms 0 s")

	byts, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "2000000 bytes, 2000 kB, 2 MB took 0 ms 0 s\n", string(byts))
}

func TestRunError(t *testing.T) {
	var stderr bytes.Buffer

	code := Run("receiver", nil, &stderr, registerNothing, func(context.Context, *Env) error {
		return errors.New("no route")
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "receiver failed")
	require.Contains(t, stderr.String(), "no route")
}

func TestRunInvalidFlags(t *testing.T) {
	var stderr bytes.Buffer

	code := Run("receiver", []string{"-unknown"}, &stderr, registerNothing, func(context.Context, *Env) error {
		t.Fatal("should not run")
		return nil
	})
	require.Equal(t, 2, code)
}

func TestRunInvalidLogLevel(t *testing.T) {
	var stderr bytes.Buffer

	code := Run("receiver", []string{"-log-level", "loud"}, &stderr, registerNothing, func(context.Context, *Env) error {
		t.Fatal("should not run")
		return nil
	})
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "loud")
}
