package tone

import (
	"github.com/openrtx/runtime/internal/audio"
	"github.com/openrtx/runtime/internal/rterr"
)

const (
	opStop = "tone.StopAudioStream"
	opWait = "tone.WaitForStreamEnd"
)

// PlayAudioStream reproduces buf through the generator's sink, locking out
// CTCSS/beep generation for the duration, per toneGen_playAudioStream's
// "this always interrupts beeps" rule. circMode selects a double circular
// buffer instead of a one-shot linear transfer.
func (g *Generator) PlayAudioStream(backend audio.Backend, buf []audio.Sample, sampleRate uint32, circMode bool) error {
	g.mu.Lock()
	if g.stream != nil {
		g.mu.Unlock()
		return rterr.New(opPlay, rterr.Busy)
	}
	g.beepOn = false
	g.ctcssOn = false
	g.locked = true
	g.mu.Unlock()

	mode := audio.BufLinear
	if circMode {
		mode = audio.BufCircularDouble
	}

	s, err := audio.NewStream(0, g.sink, audio.ModeOutput, mode, backend, buf, sampleRate)
	if err != nil {
		g.mu.Lock()
		g.locked = false
		g.mu.Unlock()
		return err
	}

	g.mu.Lock()
	g.stream = s
	g.mu.Unlock()
	return nil
}

// WaitForStreamEnd blocks until the running stream reaches its next
// boundary (for circular mode: half or full buffer; for linear: end of
// buffer), returning false immediately if no stream is running or another
// goroutine is already waiting.
func (g *Generator) WaitForStreamEnd() bool {
	g.mu.Lock()
	s := g.stream
	g.mu.Unlock()
	if s == nil {
		return false
	}
	_, err := s.Sync(false)
	return err == nil
}

// StopAudioStream interrupts playback immediately and unlocks CTCSS/beep
// generation.
func (g *Generator) StopAudioStream() error {
	g.mu.Lock()
	s := g.stream
	g.mu.Unlock()
	if s == nil {
		return nil
	}
	err := s.Terminate()

	g.mu.Lock()
	g.stream = nil
	g.locked = false
	g.mu.Unlock()
	return err
}
