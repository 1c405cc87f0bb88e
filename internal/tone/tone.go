// Package tone implements the CTCSS/beep/stream tone generator: a
// 256-entry sine table driven by phase accumulators, arbitrated against
// DMA-driven audio-stream playback.
//
// Grounded on original_source/platform/drivers/tones/toneGenerator_MDx.h
// for the priority rule ("a request for stream playback always interrupts
// beep generation, and beep generation is disabled while a stream is
// active") and on src/gen_tone.go's sine_table[256]/tone_phase
// phase-accumulator scheme (sam = sine_table[(phase>>24)&0xff]), reused
// here with a 32-bit accumulator and the table index taken from its top 8
// bits exactly as gen_tone_init/gen_tone_gen_samples do.
package tone

import (
	"math"
	"sync"
	"time"

	"github.com/openrtx/runtime/internal/audio"
	"github.com/openrtx/runtime/internal/rterr"
)

const (
	opToneOn  = "tone.ToneOn"
	opBeepOn  = "tone.BeepOn"
	opPlay    = "tone.PlayAudioStream"
	tableSize = 256
)

// sineTable mirrors gen_tone.go's sine_table: a 256-entry lookup built once
// from math.Sin at package init, scaled to int16 PWM-sample range.
var sineTable [tableSize]int16

func init() {
	for i := 0; i < tableSize; i++ {
		sineTable[i] = int16(math.Round(32767 * math.Sin(2*math.Pi*float64(i)/tableSize)))
	}
}

// phaseAccum is a 32-bit phase accumulator indexed into sineTable by its
// top 8 bits, the same scheme as tone_phase in gen_tone.go.
type phaseAccum struct {
	phase uint32
	step  uint32
}

func (p *phaseAccum) setFreq(freqHz float64, sampleRate uint32) {
	p.step = uint32(freqHz / float64(sampleRate) * (1 << 32))
}

func (p *phaseAccum) next() int16 {
	s := sineTable[p.phase>>24]
	p.phase += p.step
	return s
}

// Generator is the tone engine: CTCSS, "beep", and stream playback share
// one output path, arbitrated by a single locked flag exactly like
// toneGen_playAudioStream disabling toneGen_beepOn while active.
type Generator struct {
	mu sync.Mutex

	sampleRate uint32
	router     *audio.Router
	sink       audio.Sink

	ctcss   phaseAccum
	ctcssOn bool

	beep     phaseAccum
	beepVol  uint8
	beepOn   bool
	beepDone chan struct{}

	locked bool // true while a stream/AFSK playback owns the output

	// channelB mirrors the single shared PWM compare register channel B
	// drives. Only the beep tick writes it; stream playback sends its
	// samples to the audio backend and does not write channelB. Gated by
	// locked so that beep writes never disturb it while playback owns the
	// channel.
	channelB int16

	stream *audio.Stream
}

// NewGenerator builds a tone engine that routes its output to sink via
// router whenever it produces audio.
func NewGenerator(sampleRate uint32, router *audio.Router, sink audio.Sink) *Generator {
	return &Generator{sampleRate: sampleRate, router: router, sink: sink}
}

// SetToneFreq sets the CTCSS carrier frequency by replacing the CTCSS
// phase increment at once, whether or not the tone is on; ToneOn and
// ToneOff do not touch the increment.
func (g *Generator) SetToneFreq(freqHz float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ctcss.setFreq(freqHz, g.sampleRate)
}

// ToneOn activates CTCSS generation. Rejected while a stream/AFSK playback
// has locked the output.
func (g *Generator) ToneOn() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return rterr.New(opToneOn, rterr.Busy)
	}
	g.ctcssOn = true
	return nil
}

// ToneOff stops CTCSS generation.
func (g *Generator) ToneOff() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ctcssOn = false
}

// BeepOn activates a fixed-duration (or, if durationMs == 0, indefinite)
// "beep" tone. Rejected while a stream/AFSK playback has locked the
// output, matching the priority rule: streams always win over beeps.
func (g *Generator) BeepOn(freqHz float64, volume uint8, durationMs uint32) error {
	g.mu.Lock()
	if g.locked {
		g.mu.Unlock()
		return rterr.New(opBeepOn, rterr.Busy)
	}
	g.beep.setFreq(freqHz, g.sampleRate)
	g.beepVol = volume
	g.beepOn = true
	done := make(chan struct{})
	g.beepDone = done
	g.mu.Unlock()

	if durationMs == 0 {
		return nil
	}
	go func() {
		samples := uint32(durationMs) * g.sampleRate / 1000
		var tick <-chan time.Time
		if samples > 0 {
			ticker := time.NewTicker(time.Second / time.Duration(g.sampleRate))
			defer ticker.Stop()
			tick = ticker.C
		}
		for i := uint32(0); i < samples; i++ {
			select {
			case <-done:
				return
			case <-tick:
			}
			g.tickBeep()
		}
		g.BeepOff()
	}()
	return nil
}

// tickBeep advances the beep phase accumulator and writes the next scaled
// sample into the shared channel-B register, but only while playback
// hasn't locked the channel, matching the invariant that beep-driven ISR
// writes to channel B are gated by locked exactly like the API calls are.
func (g *Generator) tickBeep() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return
	}
	sample := g.beep.next()
	g.channelB = int16(int32(sample) * int32(g.beepVol) / 256)
}

// BeepOff force-disables channel B immediately, regardless of the
// duration originally requested, unless the channel is currently locked
// by audio/AFSK playback, in which case the call is silently ignored so
// a beep goroutine winding down in the background can never undo an
// in-progress stream's ownership of channel B.
func (g *Generator) BeepOff() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return
	}
	if g.beepDone != nil {
		select {
		case <-g.beepDone:
		default:
			close(g.beepDone)
		}
		g.beepDone = nil
	}
	g.beepOn = false
}

// ChannelB returns the most recent beep sample written to the shared PWM
// compare register channel B drives. Stream playback does not write it,
// and CTCSS runs on the separate channel A and never touches it.
func (g *Generator) ChannelB() int16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.channelB
}

// ToneBusy reports whether channel B (beep or stream playback) is
// currently enabled. CTCSS runs on the separate channel A and has no
// effect on this, matching tone_busy()'s definition.
func (g *Generator) ToneBusy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.beepOn || g.locked
}
