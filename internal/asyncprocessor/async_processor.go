// Package asyncprocessor contains an asynchronous processor.
package asyncprocessor

import (
	"context"

	"github.com/bluenviron/rtpbench/pkg/ringbuffer"
)

// Processor is an asynchronous queue processor
// that detaches the routine that reads packets
// from the routine that writes them.
type Processor struct {
	BufferSize int
	OnError    func(context.Context, error)

	running   bool
	buffer    *ringbuffer.RingBuffer[func() error]
	ctx       context.Context
	ctxCancel func()

	done chan struct{}
}

// Initialize initializes the processor.
func (p *Processor) Initialize() error {
	var err error
	p.buffer, err = ringbuffer.New[func() error](uint64(p.BufferSize))
	if err != nil {
		return err
	}

	p.ctx, p.ctxCancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	return nil
}

// Close closes the processor.
func (p *Processor) Close() {
	p.ctxCancel()
	p.buffer.Close()

	if p.running {
		<-p.done
	}
}

// Start starts the processor.
func (p *Processor) Start() {
	p.running = true
	go p.run()
}

func (p *Processor) run() {
	defer close(p.done)

	err := p.runInner()
	if err != nil && p.OnError != nil {
		p.OnError(p.ctx, err)
	}
}

func (p *Processor) runInner() error {
	for {
		cb, ok := p.buffer.Pull()
		if !ok {
			return nil
		}

		err := cb()
		if err != nil {
			return err
		}
	}
}

// Push queues a callback.
// It returns false when the queue is full.
func (p *Processor) Push(cb func() error) bool {
	return p.buffer.Push(cb)
}
