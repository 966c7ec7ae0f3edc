// ABOUTME: Playback controller owning the single audio output slot.
// ABOUTME: A new play always supersedes the old one; mute is handled upstream.

package main

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPlaybackUnavailable is returned when the audio engine is not ready or
// the sound source cannot be loaded.
var ErrPlaybackUnavailable = errors.New("audio playback unavailable")

// AudioEngine is the audio output collaborator. Implementations own the
// decoding and the device; the controller owns the single-slot policy.
type AudioEngine interface {
	Init() error
	Load(path string) error
	SetVolume(gain float64) // 0..1
	Play()
	Stop()
	IsBusy() bool
}

// NowPlaying identifies the rule currently sounding and its volume.
type NowPlaying struct {
	RuleID string
	Volume int
}

// PlaybackController serializes access to the single output slot and
// tracks the currently sounding rule for live volume adjustment.
type PlaybackController struct {
	mu     sync.Mutex
	engine AudioEngine
	ready  bool
	now    *NowPlaying
}

// NewPlaybackController initializes the engine and wraps it. When the
// engine cannot start, the controller stays usable and every Play reports
// ErrPlaybackUnavailable.
func NewPlaybackController(engine AudioEngine) *PlaybackController {
	p := &PlaybackController{engine: engine}
	if err := engine.Init(); err == nil {
		p.ready = true
	}
	return p
}

// Ready reports whether the audio engine initialized.
func (p *PlaybackController) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Play stops any current playback, loads path, applies the clamped volume
// and starts playback for ruleID. At most one playback is active at any
// instant; a new Play always wins over a prior one.
func (p *PlaybackController) Play(path string, volume int, ruleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return ErrPlaybackUnavailable
	}

	p.engine.Stop()
	p.now = nil

	if err := p.engine.Load(path); err != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackUnavailable, err)
	}

	v := ClampVolume(volume)
	p.engine.SetVolume(float64(v) / 100.0)
	p.engine.Play()
	p.now = &NowPlaying{RuleID: ruleID, Volume: v}
	return nil
}

// Stop stops output and clears the slot. Safe when nothing is playing.
func (p *PlaybackController) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		p.engine.Stop()
	}
	p.now = nil
}

// SetLiveVolume adjusts the output gain without restarting playback, but
// only when ruleID matches the currently sounding rule. Any other call is
// a no-op.
func (p *PlaybackController) SetLiveVolume(ruleID string, volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.now == nil || p.now.RuleID != ruleID {
		return
	}
	if !p.engine.IsBusy() {
		// Playback finished on its own; the slot is free.
		p.now = nil
		return
	}

	v := ClampVolume(volume)
	p.engine.SetVolume(float64(v) / 100.0)
	p.now.Volume = v
}

// Now returns the current slot, reconciling natural completion.
func (p *PlaybackController) Now() (NowPlaying, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.now == nil {
		return NowPlaying{}, false
	}
	if !p.engine.IsBusy() {
		p.now = nil
		return NowPlaying{}, false
	}
	return *p.now, true
}
