package overlay

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler runs callbacks on the next rendering frame.
type FrameScheduler interface {
	// RequestFrame schedules fn and returns a function that cancels it.
	RequestFrame(fn func()) (cancel func())
}

// TimerFrames schedules frames with a timer.
type TimerFrames struct {
	Interval time.Duration
}

// RequestFrame implements FrameScheduler.
func (t TimerFrames) RequestFrame(fn func()) func() {
	d := t.Interval
	if d <= 0 {
		d = DefaultFrameInterval
	}
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

// ManualFrames queues frames until Flush is called. Tests use it to step
// the synchronizer deterministically.
type ManualFrames struct {
	mu     sync.Mutex
	nextID int
	queue  map[int]func()
	order  []int
}

// NewManualFrames returns an empty queue.
func NewManualFrames() *ManualFrames {
	return &ManualFrames{queue: make(map[int]func())}
}

// RequestFrame implements FrameScheduler.
func (m *ManualFrames) RequestFrame(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.queue[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.queue, id)
	}
}

// Pending returns the number of queued frames.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Flush runs the frames queued so far, in order, and returns how many ran.
func (m *ManualFrames) Flush() int {
	m.mu.Lock()
	order := m.order
	m.order = nil
	var fns []func()
	for _, id := range order {
		if fn, ok := m.queue[id]; ok {
			fns = append(fns, fn)
			delete(m.queue, id)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
