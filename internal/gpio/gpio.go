// Package gpio unifies MCU pins and serial-shift-register "virtual" GPIOs
// behind one capability set.
//
// Grounded on original_source/platform/drivers/GPIO/gpio_shiftReg.{c,h}
// for the shift-register chain semantics (byte/bit indexing from the far
// end of the chain, strobe-bracketed SPI resend on every mutation) and on
// the gpiod_probe/export_gpio functions in src/ptt.go, a cgo-based attempt
// at this same MCU-vs-hosted GPIO duality, reimplemented here with
// github.com/warthog618/go-gpiocdev instead of cgo bindings to libgpiod,
// for the Native backend's hosted build.
package gpio

import "github.com/openrtx/runtime/internal/rterr"

const (
	opMode  = "gpio.Mode"
	opSet   = "gpio.Set"
	opClear = "gpio.Clear"
)

// Mode enumerates the pin configurations a native MCU port supports.
type Mode int

const (
	ModeInput Mode = iota
	ModeInputPullUp
	ModeInputPullDown
	ModeOutput
	ModeOpenDrain
	ModeAnalog
	ModeAlternate
)

// Pin is the capability set every GPIO-driving code path (LEDs, mutes,
// selectors, chip-selects) depends on. Mode is optional; the
// shift-register backend always fails it with Unsup.
type Pin interface {
	Set(pin int) error
	Clear(pin int) error
	Read(pin int) (bool, error)
	Mode(pin int, mode Mode, altFunc int) error
}

// altFunc is only meaningful when mode == ModeAlternate; other backends
// ignore it.

// staticModeError is returned by backends (shift register) that never
// support Mode.
func staticModeError(op string) error { return rterr.New(op, rterr.Unsup) }
