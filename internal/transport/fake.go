package transport

import (
	"sync"
)

// Fake is an in-memory Transport for tests. It records every frame sent
// to it and can be told to fail sends.
type Fake struct {
	mu      sync.Mutex
	frames  []string
	closed  bool
	sendErr error

	addr string
}

var _ Transport = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{addr: "fake:0"}
}

func (t *Fake) Send(frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sendErr != nil {
		return t.sendErr
	}

	t.frames = append(t.frames, frame)
	return nil
}

func (t *Fake) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func (t *Fake) RemoteAddr() string {
	return t.addr
}

// FailSends makes every subsequent Send return err.
func (t *Fake) FailSends(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sendErr = err
}

func (t *Fake) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// Frames returns a copy of every frame sent so far.
func (t *Fake) Frames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	frames := make([]string, len(t.frames))
	copy(frames, t.frames)
	return frames
}

// TakeFrames returns buffered frames and clears the buffer.
func (t *Fake) TakeFrames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	frames := t.frames
	t.frames = nil
	return frames
}
