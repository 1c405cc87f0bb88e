package audio

import (
	"sync"
	"sync/atomic"

	"github.com/openrtx/runtime/internal/rterr"
)

const (
	opStreamStart = "audio.StreamStart"
	opGetData     = "audio.InputStream.GetData"
	opSync        = "audio.OutputStream.Sync"
)

// BufMode selects how a stream's sample buffer is managed across DMA
// cycles, mirroring original_source's STREAM_INPUT/OUTPUT-orthogonal
// buffer management setting.
type BufMode int

const (
	// BufLinear treats buf as a single block: GetData returns all of buf
	// and Sync wakes only at the end-of-buffer boundary. Stream does not
	// stop the backend when that boundary is reached; whether the transfer
	// repeats from the top is up to the backend.
	BufLinear BufMode = iota
	// BufCircularDouble splits buf into two halves and keeps one half
	// being transferred while the caller fills or drains the other.
	BufCircularDouble
)

// Mode is the stream direction.
type Mode int

const (
	ModeInput Mode = iota
	ModeOutput
)

// Sample is the runtime's PCM sample type (16-bit signed, matching
// stream_sample_t on every OpenRTX target).
type Sample = int16

// DataBlock is a view into part of a stream's buffer.
type DataBlock struct {
	Data []Sample
}

// Backend is the capability set a hosted or embedded audio engine
// implements to actually move samples; Stream drives it.
type Backend interface {
	// Start begins continuous transfer of buf (input: fill it; output:
	// play it) at sampleRate, looping per mode once the buffer end is
	// reached. onHalf/onFull fire from the backend's own I/O goroutine
	// each time that boundary is crossed.
	Start(buf []Sample, sampleRate uint32, mode Mode, onHalf, onFull func()) error
	Stop() error
}

// Stream is one active audio transfer, combining a Backend with the
// buffer-management bookkeeping original_source implements per-platform
// in each audioStream_* driver.
type Stream struct {
	ID      int8
	path    Sink
	mode    Mode
	bufMode BufMode
	backend Backend
	buf     []Sample

	mu       sync.Mutex
	running  bool
	waiting  atomic.Bool // true while a goroutine is blocked in GetData/Sync
	waiterCh chan struct{}

	half int // index marking the midpoint, for circular-double mode
}

// NewStream starts a stream over buf using backend, returning immediately;
// the backend drives the transfer asynchronously and signals boundaries
// via the onHalf/onFull hooks wired in Start.
func NewStream(id int8, path Sink, mode Mode, bufMode BufMode, backend Backend, buf []Sample, sampleRate uint32) (*Stream, error) {
	if len(buf) == 0 {
		return nil, rterr.New(opStreamStart, rterr.Inval)
	}
	if bufMode == BufCircularDouble && len(buf)%2 != 0 {
		return nil, rterr.New(opStreamStart, rterr.Inval)
	}

	s := &Stream{
		ID:       id,
		path:     path,
		mode:     mode,
		bufMode:  bufMode,
		backend:  backend,
		buf:      buf,
		half:     len(buf) / 2,
		waiterCh: make(chan struct{}, 1),
	}

	onBoundary := func() {
		select {
		case s.waiterCh <- struct{}{}:
		default:
		}
	}

	onHalf := onBoundary
	if bufMode == BufLinear {
		onHalf = func() {}
	}

	if err := backend.Start(buf, sampleRate, mode, onHalf, onBoundary); err != nil {
		return nil, err
	}
	s.running = true
	return s, nil
}

// GetData returns the next filled chunk of an input stream, blocking until
// the backend reports one available. If another goroutine is already
// blocked in GetData for this stream, this call returns an empty block
// immediately rather than queuing, matching the "another thread pending"
// short-circuit in original_source.
func (s *Stream) GetData() DataBlock {
	if s.mode != ModeInput {
		return DataBlock{}
	}
	if !s.waiting.CompareAndSwap(false, true) {
		return DataBlock{}
	}
	defer s.waiting.Store(false)

	<-s.waiterCh

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bufMode == BufCircularDouble {
		return DataBlock{Data: s.buf[:s.half]}
	}
	return DataBlock{Data: s.buf}
}

// IdleBuffer returns the half of the buffer not currently owned by the
// backend, for circular-double output streams; linear streams have no
// idle half and return nil.
func (s *Stream) IdleBuffer() []Sample {
	if s.bufMode != BufCircularDouble {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf[s.half:]
}

// Sync blocks until the backend crosses its next boundary (half or full
// buffer for circular-double, end of buffer for linear). If a boundary had
// already fired since the previous Sync (the caller fell behind), this
// returns immediately with overrun=true instead of waiting for the next
// one. Only one waiter at a time; a concurrent second call, or a call on a
// stream that isn't running, fails with rterr.Busy rather than blocking.
//
// dirty selects, for BufCircularDouble streams, whether the half the
// caller just finished writing needs a format conversion applied before
// hardware can touch it; the hosted backends here never need one, so it
// is accepted and otherwise unused.
func (s *Stream) Sync(dirty bool) (overrun bool, err error) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return false, rterr.New(opSync, rterr.Busy)
	}

	if !s.waiting.CompareAndSwap(false, true) {
		return false, rterr.New(opSync, rterr.Busy)
	}
	defer s.waiting.Store(false)

	select {
	case <-s.waiterCh:
		return true, nil
	default:
	}

	<-s.waiterCh
	return false, nil
}

// Stop marks the stream not running at once and calls Backend.Stop; how
// much of the current transfer cycle still plays is up to the backend.
// Later Sync calls fail with rterr.Busy. Stop does not wake a goroutine
// already blocked in GetData/Sync: it keeps waiting for the next boundary
// the backend signals.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.backend.Stop()
}

// Terminate marks the stream not running, wakes any goroutine blocked in
// GetData/Sync right away, and then stops the backend through the same
// Backend.Stop call Stop uses; Backend has no separate abort, so whether
// the current transfer cycle drains is up to the backend. The caller's
// buffer may hold arbitrary contents afterward. Waking the blocked waiter
// is what distinguishes Terminate from Stop.
func (s *Stream) Terminate() error {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()
	if !running {
		return nil
	}

	select {
	case s.waiterCh <- struct{}{}:
	default:
	}
	return s.backend.Stop()
}
