// ABOUTME: FIFO callback queue funneling background events onto the control loop.
// ABOUTME: Post never blocks; Run drains callbacks strictly in submission order.

package main

import "sync"

// EventMarshal is the sole path by which background workers reach state
// owned by the control loop. Workers Post zero-argument callbacks; the
// control loop executes them one at a time in submission order.
type EventMarshal struct {
	mu    sync.Mutex
	queue []func()

	wake chan struct{}
	quit chan struct{}
	once sync.Once
}

// NewEventMarshal creates an empty marshal.
func NewEventMarshal() *EventMarshal {
	return &EventMarshal{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// Post enqueues a callback for the control loop. It never blocks and is
// safe from any goroutine. Callbacks posted after Quit may not run.
func (m *EventMarshal) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run executes posted callbacks on the calling goroutine until Quit. The
// caller becomes the control loop; only one Run may be active.
func (m *EventMarshal) Run() {
	for {
		select {
		case <-m.quit:
			return
		case <-m.wake:
			m.drain()
		}
	}
}

// Quit stops Run. Pending callbacks are abandoned; shutdown cleanup is
// best-effort while termination is guaranteed.
func (m *EventMarshal) Quit() {
	m.once.Do(func() { close(m.quit) })
}

func (m *EventMarshal) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
	}
}
