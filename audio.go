// ABOUTME: Audio engine backed by the beep speaker for wav/mp3 playback.
// ABOUTME: Decodes per extension, resamples to a fixed device rate.

package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const engineSampleRate = beep.SampleRate(44100)

// BeepEngine implements AudioEngine on top of the beep speaker. Load
// replaces the prepared streamer; Play hands it to the speaker. The
// speaker mixes on its own goroutine, so volume mutations go through the
// speaker lock.
type BeepEngine struct {
	mu     sync.Mutex
	ready  bool
	volume *effects.Volume
	source beep.StreamSeekCloser
	busy   bool
}

// NewBeepEngine creates an uninitialized engine; call Init before use.
func NewBeepEngine() *BeepEngine {
	return &BeepEngine{}
}

// Init opens the audio device. Returns an error when no output is
// available; the engine then stays unavailable for the process lifetime.
func (e *BeepEngine) Init() error {
	if err := speaker.Init(engineSampleRate, engineSampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("audio device init: %w", err)
	}
	e.mu.Lock()
	e.ready = true
	e.mu.Unlock()
	return nil
}

// Load decodes path and prepares it for playback, replacing any
// previously prepared source.
func (e *BeepEngine) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	var (
		source beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		source, format, err = wav.Decode(f)
	case ".mp3":
		source, format, err = mp3.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	var streamer beep.Streamer = source
	if format.SampleRate != engineSampleRate {
		streamer = beep.Resample(4, format.SampleRate, engineSampleRate, source)
	}

	e.mu.Lock()
	old := e.source
	e.source = source
	e.volume = &effects.Volume{Streamer: streamer, Base: 2}
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// SetVolume maps a 0..1 gain onto the exponential volume effect. Zero
// gain silences the output entirely.
func (e *BeepEngine) SetVolume(gain float64) {
	e.mu.Lock()
	v := e.volume
	e.mu.Unlock()
	if v == nil {
		return
	}

	speaker.Lock()
	if gain <= 0 {
		v.Silent = true
	} else {
		v.Silent = false
		if gain > 1 {
			gain = 1
		}
		v.Volume = math.Log2(gain)
	}
	speaker.Unlock()
}

// Play starts the prepared source. Anything already on the speaker is
// cleared first; the engine has a single output slot.
func (e *BeepEngine) Play() {
	e.mu.Lock()
	v := e.volume
	src := e.source
	if v == nil {
		e.mu.Unlock()
		return
	}
	e.busy = true
	e.mu.Unlock()

	speaker.Clear()
	speaker.Play(beep.Seq(v, beep.Callback(func() {
		e.mu.Lock()
		if e.source == src {
			e.busy = false
		}
		e.mu.Unlock()
	})))
}

// Stop silences the speaker and releases the prepared source.
func (e *BeepEngine) Stop() {
	e.mu.Lock()
	ready := e.ready
	src := e.source
	e.source = nil
	e.volume = nil
	e.busy = false
	e.mu.Unlock()

	if ready {
		speaker.Clear()
	}
	if src != nil {
		src.Close()
	}
}

// IsBusy reports whether the last started playback is still sounding.
func (e *BeepEngine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}
