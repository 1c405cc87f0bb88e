package gpio

import (
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/openrtx/runtime/internal/rterr"
)

// Native is the hosted-Linux backend for a native MCU GPIO port, backed by
// a gpiochip character device via warthog618/go-gpiocdev. Each pin on the
// port is requested lazily on first Mode() call and kept open for the
// lifetime of the Native value, matching an MCU port's "configure once,
// toggle many times" usage pattern.
type Native struct {
	mu    sync.Mutex
	chip  string
	lines map[int]*gpiocdev.Line
}

// NewNative opens a capability-set Pin backed by the named gpiochip (e.g.
// "gpiochip0"). Individual pins are requested on first use via Mode.
func NewNative(chip string) *Native {
	return &Native{chip: chip, lines: map[int]*gpiocdev.Line{}}
}

func (n *Native) line(pin int) (*gpiocdev.Line, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.lines[pin]
	if !ok {
		return nil, rterr.New(opSet, rterr.Inval)
	}
	return l, nil
}

// Mode configures pin as input or output. Open-drain, analog and alternate
// function modes have no gpiocdev equivalent on a generic Linux gpiochip
// and fail with Unsup; pull-up/pull-down request the matching bias flag.
func (n *Native) Mode(pin int, mode Mode, altFunc int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if l, ok := n.lines[pin]; ok {
		l.Close()
		delete(n.lines, pin)
	}

	var opts []gpiocdev.LineReqOption
	switch mode {
	case ModeInput:
		opts = append(opts, gpiocdev.AsInput)
	case ModeInputPullUp:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithPullUp)
	case ModeInputPullDown:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithPullDown)
	case ModeOutput:
		opts = append(opts, gpiocdev.AsOutput(0))
	default:
		return staticModeError(opMode)
	}

	l, err := gpiocdev.RequestLine(n.chip, pin, opts...)
	if err != nil {
		return rterr.Newf(opMode, rterr.IO, "gpiocdev request line %d: %v", pin, err)
	}
	n.lines[pin] = l
	return nil
}

func (n *Native) Set(pin int) error {
	l, err := n.line(pin)
	if err != nil {
		return err
	}
	if err := l.SetValue(1); err != nil {
		return rterr.Newf(opSet, rterr.IO, "gpiocdev set line %d: %v", pin, err)
	}
	return nil
}

func (n *Native) Clear(pin int) error {
	l, err := n.line(pin)
	if err != nil {
		return err
	}
	if err := l.SetValue(0); err != nil {
		return rterr.Newf(opClear, rterr.IO, "gpiocdev clear line %d: %v", pin, err)
	}
	return nil
}

func (n *Native) Read(pin int) (bool, error) {
	l, err := n.line(pin)
	if err != nil {
		return false, err
	}
	v, err := l.Value()
	if err != nil {
		return false, rterr.Newf(opSet, rterr.IO, "gpiocdev read line %d: %v", pin, err)
	}
	return v != 0, nil
}

// Close releases every requested line.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for pin, l := range n.lines {
		l.Close()
		delete(n.lines, pin)
	}
	return nil
}
