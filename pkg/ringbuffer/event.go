package ringbuffer

// event is an auto-reset event. Signals sent while nobody is waiting
// are remembered until the next wait, multiple signals collapse into one.
type event struct {
	ch chan struct{}
}

func newEvent() *event {
	return &event{ch: make(chan struct{}, 1)}
}

func (e *event) signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func (e *event) wait() {
	<-e.ch
}
