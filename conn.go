// ABOUTME: Connection manager owning the stream client lifecycle.
// ABOUTME: Idempotent start, bounded stop, restart with a settling delay.

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrNotConfigured is reported when start is requested without a token.
var ErrNotConfigured = errors.New("token not configured")

// ConnState is the coarse connection state owned by the manager.
type ConnState int

const (
	StateOffline ConnState = iota
	StateConnecting
	StateOnline
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOnline:
		return "online"
	default:
		return "offline"
	}
}

// StateReport carries one state transition and a diagnostic for display.
// Err is set for NotConfigured and connection failures.
type StateReport struct {
	State  ConnState
	Detail string
	Err    error
}

const (
	connStopTimeout = 2500 * time.Millisecond
	connSettleDelay = 400 * time.Millisecond
)

// ConnectionManager owns the lifecycle of the stream client. At most one
// client is alive at a time; concurrent start attempts collapse into one.
// State reports and anything else that must reach control-loop state go
// through the event marshal, never directly from worker goroutines.
type ConnectionManager struct {
	dial      StreamClientFactory
	marshal   *EventMarshal
	onState   func(StateReport)  // runs on the control loop
	onMessage func(MessageEvent) // runs on the worker

	// lifecycle serializes Start/Stop/Restart end to end.
	lifecycle sync.Mutex

	// mu guards the fields below.
	mu     sync.Mutex
	client StreamClient
	done   chan struct{}
	selfID string
}

// NewConnectionManager wires a manager. onState runs on the control loop
// via the marshal; onMessage runs on the client's goroutines.
func NewConnectionManager(dial StreamClientFactory, marshal *EventMarshal, onState func(StateReport), onMessage func(MessageEvent)) *ConnectionManager {
	return &ConnectionManager{
		dial:      dial,
		marshal:   marshal,
		onState:   onState,
		onMessage: onMessage,
	}
}

// Start brings the connection up. With an empty token it stays Offline
// and reports NotConfigured. While a worker is alive, Start is a no-op.
func (m *ConnectionManager) Start(serverURL, token string) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.start(serverURL, token)
}

// Stop tears the connection down, waiting up to the stop timeout for the
// client to unwind. On timeout it proceeds anyway. Safe to call when
// already Offline.
func (m *ConnectionManager) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stop()
}

// Restart stops fully, waits a settling delay, then starts again. The
// lifecycle lock keeps it from overlapping any other Start/Stop/Restart.
func (m *ConnectionManager) Restart(serverURL, token string) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stop()
	time.Sleep(connSettleDelay)
	m.start(serverURL, token)
}

func (m *ConnectionManager) start(serverURL, token string) {
	if strings.TrimSpace(token) == "" {
		m.report(StateReport{State: StateOffline, Detail: "token not configured (open settings)", Err: ErrNotConfigured})
		return
	}

	m.mu.Lock()
	if m.client != nil {
		m.mu.Unlock()
		return
	}

	events := StreamEvents{
		OnReady: func(selfID string) {
			m.mu.Lock()
			m.selfID = selfID
			m.mu.Unlock()
			detail := "online"
			if selfID != "" {
				detail = "online (" + selfID + ")"
			}
			m.report(StateReport{State: StateOnline, Detail: detail})
		},
		OnDisconnect: func(reason string) {
			m.report(StateReport{State: StateOffline, Detail: "disconnected", Err: errors.New(reason)})
		},
		OnMessage: m.handleMessage,
	}

	client := m.dial(serverURL, token, events)
	done := make(chan struct{})
	m.client = client
	m.done = done
	m.mu.Unlock()

	m.report(StateReport{State: StateConnecting, Detail: "connecting..."})

	go func() {
		defer close(done)
		if err := client.Connect(); err != nil {
			m.report(StateReport{State: StateOffline, Detail: "start failed", Err: fmt.Errorf("connect: %w", err)})
			m.clearClient(client)
			return
		}
		<-client.Done()
	}()
}

func (m *ConnectionManager) stop() {
	m.mu.Lock()
	client := m.client
	done := m.done
	m.client = nil
	m.done = nil
	m.selfID = ""
	m.mu.Unlock()

	if client == nil {
		return
	}

	client.Close()

	select {
	case <-done:
	case <-time.After(connStopTimeout):
		log.Printf("Connection worker did not stop within %v, proceeding", connStopTimeout)
	}

	m.report(StateReport{State: StateOffline, Detail: "offline"})
}

// handleMessage filters out the account's own messages and automated
// senders, then forwards to the dispatcher. Runs on client goroutines.
func (m *ConnectionManager) handleMessage(ev MessageEvent) {
	if ev.IsAutomated {
		return
	}

	m.mu.Lock()
	self := m.selfID
	m.mu.Unlock()
	if self != "" && ev.SenderID == self {
		return
	}

	if m.onMessage != nil {
		m.onMessage(ev)
	}
}

// clearClient resets lifecycle fields after a failed connect, but only if
// no newer client has replaced this one.
func (m *ConnectionManager) clearClient(c StreamClient) {
	m.mu.Lock()
	if m.client == c {
		m.client = nil
		m.done = nil
		m.selfID = ""
	}
	m.mu.Unlock()
}

// report submits a state transition to the control loop.
func (m *ConnectionManager) report(r StateReport) {
	if m.onState == nil {
		return
	}
	m.marshal.Post(func() { m.onState(r) })
}
