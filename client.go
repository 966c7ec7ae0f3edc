// ABOUTME: WebSocket client for receiving message events from a stream hub.
// ABOUTME: Handles authentication, the hello handshake, and reconnection with backoff.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const helloTimeout = 5 * time.Second

// StreamEvents carries the callbacks a stream client invokes. OnReady
// fires after a successful handshake with the hub's self identity,
// OnDisconnect fires when the connection drops, and OnMessage fires for
// every message event on the stream. All three run on client goroutines.
type StreamEvents struct {
	OnReady      func(selfID string)
	OnDisconnect func(reason string)
	OnMessage    func(ev MessageEvent)
}

// StreamClient is the capability set the connection manager needs from a
// transport. A mock implementation keeps the manager testable without a
// real hub.
type StreamClient interface {
	// Connect establishes the connection and completes the handshake.
	Connect() error
	// Close disconnects and stops any reconnection attempts.
	Close()
	// Done is closed once Close has fully taken effect.
	Done() <-chan struct{}
}

// StreamClientFactory builds a client for one connection lifecycle.
type StreamClientFactory func(serverURL, token string, events StreamEvents) StreamClient

// WSStreamClient connects to a stream hub over WebSocket. After a drop it
// reconnects on its own with exponential backoff; every reconnect replays
// the handshake, so OnReady and OnDisconnect keep reporting transitions
// until Close.
type WSStreamClient struct {
	serverURL string
	token     string
	events    StreamEvents

	MinReconnectDelay time.Duration
	MaxReconnectDelay time.Duration

	conn      *websocket.Conn
	mu        sync.RWMutex
	closed    bool
	closeChan chan struct{}
	doneChan  chan struct{}
	doneOnce  sync.Once
}

// NewWSStreamClient creates a client for the given hub.
func NewWSStreamClient(serverURL, token string, events StreamEvents) StreamClient {
	return &WSStreamClient{
		serverURL:         serverURL,
		token:             token,
		events:            events,
		MinReconnectDelay: time.Second,
		MaxReconnectDelay: 30 * time.Second,
		closeChan:         make(chan struct{}, 1),
		doneChan:          make(chan struct{}),
	}
}

// Connect dials the hub and performs the hello handshake. On success the
// read loop runs in the background until the connection drops or Close.
func (c *WSStreamClient) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := websocket.DefaultDialer.Dial(c.serverURL, header)
	if err != nil {
		return err
	}

	selfID, err := c.readHello(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		c.markDone()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	if c.events.OnReady != nil {
		c.events.OnReady(selfID)
	}

	go c.readLoop()
	return nil
}

// readHello waits briefly for the hub's hello frame.
func (c *WSStreamClient) readHello(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	frame, err := DecodeFrame(raw)
	if err != nil {
		return "", err
	}
	if frame.Type != FrameTypeHello {
		return "", errors.New("expected hello frame")
	}

	var hello Hello
	if err := json.Unmarshal(frame.Data, &hello); err != nil {
		return "", err
	}
	return hello.SelfID, nil
}

// readLoop reads frames until the connection drops, then schedules a
// reconnect unless the client was closed.
func (c *WSStreamClient) readLoop() {
	defer func() {
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		closed := c.closed
		c.mu.Unlock()

		if closed {
			// Deliberate Close; not a failure to report.
			c.markDone()
			return
		}

		if c.events.OnDisconnect != nil {
			c.events.OnDisconnect("connection lost")
		}
		go c.reconnectLoop()
	}()

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		frame, err := DecodeFrame(raw)
		if err != nil {
			log.Printf("Dropping malformed frame: %v", err)
			continue
		}

		switch frame.Type {
		case FrameTypeMessage:
			var ev MessageEvent
			if err := json.Unmarshal(frame.Data, &ev); err != nil {
				log.Printf("Dropping malformed message event: %v", err)
				continue
			}
			if c.events.OnMessage != nil {
				c.events.OnMessage(ev)
			}
		}
	}
}

// reconnectLoop attempts to reconnect with exponential backoff.
func (c *WSStreamClient) reconnectLoop() {
	delay := c.MinReconnectDelay

	for {
		select {
		case <-c.closeChan:
			c.markDone()
			return
		case <-time.After(delay):
		}

		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			c.markDone()
			return
		}

		log.Printf("Reconnecting to %s...", c.serverURL)

		if err := c.Connect(); err != nil {
			log.Printf("Reconnect failed: %v", err)
			delay *= 2
			if delay > c.MaxReconnectDelay {
				delay = c.MaxReconnectDelay
			}
			continue
		}
		return
	}
}

// Close disconnects from the hub and stops reconnection attempts.
func (c *WSStreamClient) Close() {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	hadConn := c.conn != nil
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if alreadyClosed {
		return
	}

	select {
	case c.closeChan <- struct{}{}:
	default:
	}

	// With no live connection there is no read loop left to signal done.
	if !hadConn {
		c.markDone()
	}
}

// Done reports full shutdown after Close.
func (c *WSStreamClient) Done() <-chan struct{} {
	return c.doneChan
}

func (c *WSStreamClient) markDone() {
	c.doneOnce.Do(func() { close(c.doneChan) })
}

// IsConnected reports whether a connection is currently live.
func (c *WSStreamClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}
