package asyncprocessor

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvalidBufferSize(t *testing.T) {
	p := &Processor{
		BufferSize: 10,
	}
	err := p.Initialize()
	require.EqualError(t, err, "size must be a power of two")
}

func TestCloseBeforeStart(t *testing.T) {
	p := &Processor{
		BufferSize: 8,
	}
	err := p.Initialize()
	require.NoError(t, err)
	defer p.Close()
}

func TestProcess(t *testing.T) {
	var count atomic.Int64
	done := make(chan struct{})

	p := &Processor{
		BufferSize: 8,
	}
	err := p.Initialize()
	require.NoError(t, err)
	defer p.Close()

	p.Start()

	for range 3 {
		ok := p.Push(func() error {
			if count.Add(1) == 3 {
				close(done)
			}
			return nil
		})
		require.True(t, ok)
	}

	<-done
	require.Equal(t, int64(3), count.Load())
}

func TestCloseAfterError(t *testing.T) {
	done := make(chan struct{})

	p := &Processor{
		BufferSize: 8,
		OnError: func(_ context.Context, err error) {
			require.EqualError(t, err, "ok")
			close(done)
		},
	}
	err := p.Initialize()
	require.NoError(t, err)
	defer p.Close()

	p.Push(func() error {
		return fmt.Errorf("ok")
	})

	p.Start()

	<-done
}

func TestCloseDuringError(t *testing.T) {
	p := &Processor{
		BufferSize: 8,
		OnError: func(ctx context.Context, _ error) {
			<-ctx.Done()
		},
	}
	err := p.Initialize()
	require.NoError(t, err)
	defer p.Close()

	p.Push(func() error {
		return fmt.Errorf("ok")
	})

	p.Start()
}
