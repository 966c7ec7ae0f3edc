// ABOUTME: Tests for the single-slot playback controller with a fake engine.
// ABOUTME: Covers supersession, live volume adjustment, and degraded mode.

package main

import (
	"errors"
	"testing"
)

type fakeEngine struct {
	initErr error
	loadErr map[string]error

	loaded []string
	volume float64
	busy   bool
	stops  int
	plays  int
}

func (f *fakeEngine) Init() error { return f.initErr }

func (f *fakeEngine) Load(path string) error {
	if err := f.loadErr[path]; err != nil {
		return err
	}
	f.loaded = append(f.loaded, path)
	return nil
}

func (f *fakeEngine) SetVolume(gain float64) { f.volume = gain }
func (f *fakeEngine) Play()                  { f.plays++; f.busy = true }
func (f *fakeEngine) Stop()                  { f.stops++; f.busy = false }
func (f *fakeEngine) IsBusy() bool           { return f.busy }

func TestPlaybackPlay(t *testing.T) {
	eng := &fakeEngine{}
	p := NewPlaybackController(eng)

	if !p.Ready() {
		t.Fatal("controller should be ready")
	}
	if err := p.Play("/snd/a.wav", 70, "u1"); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if eng.plays != 1 {
		t.Errorf("expected 1 play, got %d", eng.plays)
	}
	if eng.volume != 0.7 {
		t.Errorf("expected gain 0.7, got %v", eng.volume)
	}

	now, ok := p.Now()
	if !ok || now.RuleID != "u1" || now.Volume != 70 {
		t.Errorf("unexpected slot: %+v ok=%v", now, ok)
	}
}

func TestPlaybackNewPlaySupersedes(t *testing.T) {
	eng := &fakeEngine{}
	p := NewPlaybackController(eng)

	p.Play("/snd/a.wav", 50, "u1")
	stopsBefore := eng.stops
	p.Play("/snd/b.wav", 60, "u2")

	if eng.stops <= stopsBefore {
		t.Error("new play should stop the previous one")
	}
	now, ok := p.Now()
	if !ok || now.RuleID != "u2" {
		t.Errorf("slot should hold the newer rule, got %+v", now)
	}
}

func TestPlaybackEngineInitFailure(t *testing.T) {
	eng := &fakeEngine{initErr: errors.New("no output device")}
	p := NewPlaybackController(eng)

	if p.Ready() {
		t.Fatal("controller should not be ready")
	}
	if err := p.Play("/snd/a.wav", 50, "u1"); !errors.Is(err, ErrPlaybackUnavailable) {
		t.Errorf("expected ErrPlaybackUnavailable, got %v", err)
	}
	// Stop must stay safe in degraded mode.
	p.Stop()
}

func TestPlaybackLoadFailure(t *testing.T) {
	eng := &fakeEngine{loadErr: map[string]error{"/gone.wav": errors.New("no such file")}}
	p := NewPlaybackController(eng)

	err := p.Play("/gone.wav", 50, "u1")
	if !errors.Is(err, ErrPlaybackUnavailable) {
		t.Errorf("expected ErrPlaybackUnavailable, got %v", err)
	}
	if _, ok := p.Now(); ok {
		t.Error("slot should be empty after a failed load")
	}
}

func TestPlaybackStopClearsSlot(t *testing.T) {
	eng := &fakeEngine{}
	p := NewPlaybackController(eng)

	p.Play("/snd/a.wav", 50, "u1")
	p.Stop()

	if _, ok := p.Now(); ok {
		t.Error("slot should be empty after Stop")
	}
	// Stopping again is a no-op.
	p.Stop()
}

func TestPlaybackSetLiveVolume(t *testing.T) {
	eng := &fakeEngine{}
	p := NewPlaybackController(eng)

	p.Play("/snd/a.wav", 50, "u1")

	// Different rule id: no effect.
	p.SetLiveVolume("u2", 90)
	if eng.volume != 0.5 {
		t.Errorf("volume changed for wrong rule: %v", eng.volume)
	}

	// Matching rule id while busy: applied, clamped.
	p.SetLiveVolume("u1", 300)
	if eng.volume != 1.0 {
		t.Errorf("expected gain 1.0, got %v", eng.volume)
	}
	now, _ := p.Now()
	if now.Volume != 100 {
		t.Errorf("slot volume not updated: %d", now.Volume)
	}
}

func TestPlaybackNaturalCompletion(t *testing.T) {
	eng := &fakeEngine{}
	p := NewPlaybackController(eng)

	p.Play("/snd/a.wav", 50, "u1")
	eng.busy = false // sound ran out on its own

	volBefore := eng.volume
	p.SetLiveVolume("u1", 90)
	if eng.volume != volBefore {
		t.Error("finished playback should not accept volume changes")
	}
	if _, ok := p.Now(); ok {
		t.Error("slot should reconcile to empty after completion")
	}
}
