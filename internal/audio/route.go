// Package audio implements the audio routing matrix and DMA-style stream
// runtime.
//
// Grounded on original_source/openrtx/include/core/audio_stream.h for the
// stream state machine and on audio.go's adev_s / ONE_BUF_TIME handling of
// in/out buffers for the general shape of a buffered audio path, reworked
// here as an explicit routing graph instead of a single fixed in/out pair.
package audio

import (
	"time"

	"github.com/openrtx/runtime/internal/rterr"
)

const opConnect = "audio.Connect"

// speakerUnmuteDelay is the minimum time between opening a path to the
// speaker and unmuting it.
const speakerUnmuteDelay = 10 * time.Millisecond

// Source identifies where an audio path can originate.
type Source int

const (
	SourceMic Source = iota
	SourceRtx
	SourceMcu
)

// Sink identifies where an audio path can terminate.
type Sink int

const (
	SinkSpk Sink = iota
	SinkRtx
	SinkMcu
)

const (
	numSources = 3
	numSinks   = 3
	numPaths   = numSources * numSinks
)

var sourceNames = [numSources]string{"MIC", "RTX", "MCU"}
var sinkNames = [numSinks]string{"SPK", "RTX", "MCU"}

func (s Source) String() string {
	if int(s) < 0 || int(s) >= len(sourceNames) {
		return "UNKNOWN_SOURCE"
	}
	return sourceNames[s]
}

func (s Sink) String() string {
	if int(s) < 0 || int(s) >= len(sinkNames) {
		return "UNKNOWN_SINK"
	}
	return sinkNames[s]
}

// Path is a single source-to-sink audio connection.
type Path struct {
	Source Source
	Sink   Sink
}

func (p Path) String() string { return p.Source.String() + "->" + p.Sink.String() }

// pathIndex computes a path's row/column into the compatibility matrix:
// path_index = source*3 + sink.
func pathIndex(p Path) int { return int(p.Source)*numSinks + int(p.Sink) }

// compatMatrix is the immutable 9x9 audio-path compatibility matrix: M[p1][p2]
// reports whether paths p1 and p2 may be open simultaneously. It is the
// single source of truth for path compatibility; callers never inspect
// sources and sinks independently. Two paths conflict, and so cannot be
// open together, whenever they share a source (one source cannot feed two
// destinations at once) or share a sink (one sink cannot be driven by two
// sources at once); this makes the matrix symmetric and reflexive-false on
// the diagonal (a path always shares both its source and sink with
// itself).
var compatMatrix [numPaths][numPaths]bool

func init() {
	for s1 := Source(0); s1 < numSources; s1++ {
		for k1 := Sink(0); k1 < numSinks; k1++ {
			p1 := pathIndex(Path{Source: s1, Sink: k1})
			for s2 := Source(0); s2 < numSources; s2++ {
				for k2 := Sink(0); k2 < numSinks; k2++ {
					p2 := pathIndex(Path{Source: s2, Sink: k2})
					compatMatrix[p1][p2] = s1 != s2 && k1 != k2
				}
			}
		}
	}
}

// CheckCompatibility reports whether p1 and p2 may be routed simultaneously.
// It is read-only and side-effect free; it never re-derives the answer
// from Source/Sink equality on its own. It is purely a lookup into
// compatMatrix.
func CheckCompatibility(p1, p2 Path) bool {
	return compatMatrix[pathIndex(p1)][pathIndex(p2)]
}

// Router tracks the set of currently open paths, gating new connections
// against compatMatrix so that no two simultaneously open paths ever
// conflict.
type Router struct {
	active []Path
	mute   func(Sink) error // anti-pop mute hook, optional
	unmute func(Sink) error
}

// NewRouter builds a Router. mute/unmute are invoked around a Connect/
// Disconnect, matching the mute-before-switch/unmute-after-settle
// sequencing real codec drivers need to avoid an audible pop; either may
// be nil.
func NewRouter(mute, unmute func(Sink) error) *Router {
	return &Router{mute: mute, unmute: unmute}
}

func (r *Router) conflict(p Path) (Path, bool) {
	for _, active := range r.active {
		if active == p {
			continue
		}
		if !CheckCompatibility(p, active) {
			return active, true
		}
	}
	return Path{}, false
}

// Connect performs the platform-specific electrical routing for src->dst
// (amplifier enable, mic bias, analog mux select, AF mute/unmute, codec
// register writes). mute runs first, then the path is opened, then
// unmute; for the speaker sink Connect waits speakerUnmuteDelay (10ms)
// before unmute to suppress an audible pop. It does not open the
// audio stream itself (see Stream). Connecting an already-open path is a
// no-op; connecting a path that conflicts with one already open fails
// with Busy.
func (r *Router) Connect(src Source, dst Sink) error {
	p := Path{Source: src, Sink: dst}
	for _, active := range r.active {
		if active == p {
			return nil
		}
	}
	if conflicting, busy := r.conflict(p); busy {
		return rterr.Newf(opConnect, rterr.Busy, "%s conflicts with open path %s", p, conflicting)
	}

	if r.mute != nil {
		if err := r.mute(dst); err != nil {
			return err
		}
	}
	r.active = append(r.active, p)
	if r.unmute != nil {
		if dst == SinkSpk {
			time.Sleep(speakerUnmuteDelay)
		}
		return r.unmute(dst)
	}
	return nil
}

// Disconnect reverses Connect: mute dst before tearing the path down,
// the inverse anti-pop sequencing from Connect's mute-before-unmute.
// Disconnecting a path that isn't open is not an error.
func (r *Router) Disconnect(src Source, dst Sink) error {
	p := Path{Source: src, Sink: dst}
	for i, active := range r.active {
		if active != p {
			continue
		}
		if r.mute != nil {
			if err := r.mute(dst); err != nil {
				return err
			}
		}
		r.active = append(r.active[:i], r.active[i+1:]...)
		return nil
	}
	return nil
}

// SourceFor reports the source currently feeding dst, if any.
func (r *Router) SourceFor(dst Sink) (Source, bool) {
	for _, p := range r.active {
		if p.Sink == dst {
			return p.Source, true
		}
	}
	return 0, false
}

// Paths returns a snapshot of every currently open path.
func (r *Router) Paths() []Path {
	out := make([]Path, len(r.active))
	copy(out, r.active)
	return out
}
