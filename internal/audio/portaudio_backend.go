package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/openrtx/runtime/internal/rterr"
)

const opPABackend = "audio.PortAudioBackend"

// PortAudioBackend hosts a Stream on the machine's default sound device via
// gordonklaus/portaudio, standing in for the DMA-driven codec interface a
// real handheld's baseband processor drives directly. Each callback
// invocation corresponds to one DMA half-transfer-complete interrupt.
type PortAudioBackend struct {
	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioBackend returns an unstarted backend; Start opens the actual
// device stream once buffer/mode/rate are known.
func NewPortAudioBackend() *PortAudioBackend { return &PortAudioBackend{} }

func (b *PortAudioBackend) Start(buf []Sample, sampleRate uint32, mode Mode, onHalf, onFull func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	half := len(buf) / 2
	pos := 0

	callback := func(in, out []int16) {
		switch mode {
		case ModeInput:
			n := copy(buf[pos:], in)
			pos += n
		case ModeOutput:
			n := copy(out, buf[pos:])
			pos += n
		}
		if pos >= half && pos < len(buf) {
			onHalf()
		}
		if pos >= len(buf) {
			pos = 0
			onFull()
		}
	}

	var s *portaudio.Stream
	var err error
	framesPerBuffer := half
	if framesPerBuffer <= 0 {
		framesPerBuffer = len(buf)
	}

	switch mode {
	case ModeInput:
		s, err = portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer,
			func(in []int16) { callback(in, nil) })
	case ModeOutput:
		s, err = portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer,
			func(out []int16) { callback(nil, out) })
	default:
		return rterr.New(opPABackend, rterr.Inval)
	}
	if err != nil {
		return rterr.Newf(opPABackend, rterr.IO, "portaudio open stream: %v", err)
	}
	if err := s.Start(); err != nil {
		return rterr.Newf(opPABackend, rterr.IO, "portaudio start stream: %v", err)
	}
	b.stream = s
	return nil
}

func (b *PortAudioBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return nil
	}
	err := b.stream.Stop()
	b.stream.Close()
	b.stream = nil
	if err != nil {
		return rterr.Newf(opPABackend, rterr.IO, "portaudio stop stream: %v", err)
	}
	return nil
}
