// ABOUTME: Defines the WebSocket wire protocol between the stream hub and clients.
// ABOUTME: Supports the hello handshake and message event delivery.

package main

import "encoding/json"

// FrameType identifies the type of WebSocket frame.
type FrameType string

const (
	FrameTypeHello   FrameType = "hello"
	FrameTypeMessage FrameType = "message"
)

// Frame is the envelope for all WebSocket communication.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hello is the first frame the hub sends after a client connects. SelfID is
// the identity the connected account posts under; clients suppress alerts
// for it to avoid feedback loops.
type Hello struct {
	SelfID string `json:"selfId,omitempty"`
}

// MessageEvent is one inbound message observed on the stream.
type MessageEvent struct {
	ID                string `json:"id,omitempty"`
	SenderID          string `json:"senderId"`
	SenderDisplayName string `json:"senderDisplayName,omitempty"`
	IsAutomated       bool   `json:"isAutomated,omitempty"`
	LocationLabel     string `json:"locationLabel,omitempty"`
	Text              string `json:"text,omitempty"`
}

// EncodeFrame creates a Frame envelope with the given type and data.
func EncodeFrame(frameType FrameType, data interface{}) ([]byte, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	frame := Frame{
		Type: frameType,
		Data: dataBytes,
	}
	return json.Marshal(frame)
}

// DecodeFrame parses a raw frame into type and data components.
func DecodeFrame(raw []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}
