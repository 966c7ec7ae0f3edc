// ABOUTME: Tests for the connection manager's lifecycle and filtering.
// ABOUTME: Uses a fake stream client so no hub is needed.

package main

import (
	"sync"
	"testing"
	"time"
)

type fakeStreamClient struct {
	events StreamEvents

	mu        sync.Mutex
	connected bool
	closedN   int
	done      chan struct{}
	doneOnce  sync.Once
}

func newFakeStreamClient(events StreamEvents) *fakeStreamClient {
	return &fakeStreamClient{events: events, done: make(chan struct{})}
}

func (f *fakeStreamClient) Connect() error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	if f.events.OnReady != nil {
		f.events.OnReady("self-1")
	}
	return nil
}

func (f *fakeStreamClient) Close() {
	f.mu.Lock()
	f.closedN++
	f.mu.Unlock()
	f.doneOnce.Do(func() { close(f.done) })
}

func (f *fakeStreamClient) Done() <-chan struct{} { return f.done }

type connFixture struct {
	marshal  *EventMarshal
	mgr      *ConnectionManager
	reports  chan StateReport
	messages chan MessageEvent

	mu      sync.Mutex
	clients []*fakeStreamClient
}

func newConnFixture(t *testing.T) *connFixture {
	t.Helper()

	f := &connFixture{
		marshal:  NewEventMarshal(),
		reports:  make(chan StateReport, 16),
		messages: make(chan MessageEvent, 16),
	}
	dial := func(serverURL, token string, events StreamEvents) StreamClient {
		c := newFakeStreamClient(events)
		f.mu.Lock()
		f.clients = append(f.clients, c)
		f.mu.Unlock()
		return c
	}
	f.mgr = NewConnectionManager(dial, f.marshal,
		func(r StateReport) { f.reports <- r },
		func(ev MessageEvent) { f.messages <- ev },
	)

	go f.marshal.Run()
	t.Cleanup(f.marshal.Quit)
	return f
}

func (f *connFixture) waitReport(t *testing.T) StateReport {
	t.Helper()
	select {
	case r := <-f.reports:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no state report arrived")
		return StateReport{}
	}
}

func (f *connFixture) expectNoReport(t *testing.T) {
	t.Helper()
	select {
	case r := <-f.reports:
		t.Fatalf("unexpected report: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func (f *connFixture) client(t *testing.T, i int) *fakeStreamClient {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) <= i {
		t.Fatalf("client %d never dialed (%d total)", i, len(f.clients))
	}
	return f.clients[i]
}

func TestConnStartWithoutToken(t *testing.T) {
	f := newConnFixture(t)

	f.mgr.Start("ws://h/ws", "")

	r := f.waitReport(t)
	if r.State != StateOffline || r.Err != ErrNotConfigured {
		t.Errorf("expected offline/not-configured, got %+v", r)
	}

	f.mu.Lock()
	dialed := len(f.clients)
	f.mu.Unlock()
	if dialed != 0 {
		t.Error("no client should be dialed without a token")
	}
}

func TestConnStartReportsOnline(t *testing.T) {
	f := newConnFixture(t)

	f.mgr.Start("ws://h/ws", "tok")

	if r := f.waitReport(t); r.State != StateConnecting {
		t.Fatalf("expected connecting first, got %+v", r)
	}
	if r := f.waitReport(t); r.State != StateOnline {
		t.Fatalf("expected online, got %+v", r)
	}
}

func TestConnStartIsIdempotent(t *testing.T) {
	f := newConnFixture(t)

	f.mgr.Start("ws://h/ws", "tok")
	f.waitReport(t) // connecting
	f.waitReport(t) // online

	f.mgr.Start("ws://h/ws", "tok")
	f.expectNoReport(t)

	f.mu.Lock()
	dialed := len(f.clients)
	f.mu.Unlock()
	if dialed != 1 {
		t.Errorf("second start dialed a new client: %d total", dialed)
	}
}

func TestConnStopWhenOfflineIsNoOp(t *testing.T) {
	f := newConnFixture(t)
	f.mgr.Stop()
	f.expectNoReport(t)
}

func TestConnStopClosesClient(t *testing.T) {
	f := newConnFixture(t)

	f.mgr.Start("ws://h/ws", "tok")
	f.waitReport(t)
	f.waitReport(t)

	f.mgr.Stop()

	r := f.waitReport(t)
	if r.State != StateOffline {
		t.Errorf("expected offline after stop, got %+v", r)
	}

	c := f.client(t, 0)
	c.mu.Lock()
	closed := c.closedN
	c.mu.Unlock()
	if closed == 0 {
		t.Error("stop never closed the client")
	}
}

func TestConnRestartDialsFreshClient(t *testing.T) {
	f := newConnFixture(t)

	f.mgr.Start("ws://h/ws", "tok")
	f.waitReport(t)
	f.waitReport(t)

	f.mgr.Restart("ws://h/ws", "tok")

	// offline from stop, then connecting and online from the new client
	if r := f.waitReport(t); r.State != StateOffline {
		t.Fatalf("expected offline, got %+v", r)
	}
	if r := f.waitReport(t); r.State != StateConnecting {
		t.Fatalf("expected connecting, got %+v", r)
	}
	if r := f.waitReport(t); r.State != StateOnline {
		t.Fatalf("expected online, got %+v", r)
	}

	f.mu.Lock()
	dialed := len(f.clients)
	f.mu.Unlock()
	if dialed != 2 {
		t.Errorf("expected a fresh client after restart, got %d dials", dialed)
	}
}

func TestConnFiltersAutomatedAndSelf(t *testing.T) {
	f := newConnFixture(t)

	f.mgr.Start("ws://h/ws", "tok")
	f.waitReport(t)
	f.waitReport(t) // online, selfID = "self-1" recorded

	c := f.client(t, 0)
	c.events.OnMessage(MessageEvent{SenderID: "bot", IsAutomated: true, Text: "spam"})
	c.events.OnMessage(MessageEvent{SenderID: "self-1", Text: "own message"})
	c.events.OnMessage(MessageEvent{SenderID: "u1", Text: "real"})

	select {
	case ev := <-f.messages:
		if ev.SenderID != "u1" {
			t.Errorf("wrong message passed the filter: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("real message never dispatched")
	}

	select {
	case ev := <-f.messages:
		t.Errorf("filtered message leaked through: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
