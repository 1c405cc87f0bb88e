package gpio

import (
	"sync"

	"github.com/openrtx/runtime/internal/rterr"
)

// SPIWriter is the minimal transport a shift-register chain needs: send
// the whole mirror buffer out over SPI on every mutation. Real hardware
// backs this with an SPI peripheral driver; the hosted build can back it
// with anything that records the bytes (a loopback buffer, a test double).
type SPIWriter interface {
	Send(data []byte) error
}

// Strobe latches an SPI shift register's output once a full byte chain has
// been clocked out. On real hardware this is a single MCU output pin;
// ShiftChain only ever Clears then Sets it, matching the clear/shift/raise
// bracket in gpio_shiftReg.c.
type Strobe interface {
	Clear() error
	Set() error
}

// ShiftChain is a "virtual" GPIO port backed by a daisy chain of parallel
// shift-register ICs (74HC595 and similar), grounded directly on
// original_source/platform/drivers/GPIO/gpio_shiftReg.c. Pin numbering
// starts from the far end of the chain: pin 0 is the last bit clocked out
// of the last device, so the byte index is computed from
// (numOutputs-1-pin)/8, but the bit within that byte is always pin%8.
// Only the byte flips direction across the chain; the bit does not. Do
// not fold this into a single (numOutputs-1-pin)-based formula;
// gpio_shiftReg.c keeps the two halves of the index separate for exactly
// this reason.
type ShiftChain struct {
	mu         sync.Mutex
	spi        SPIWriter
	strobe     Strobe
	numOutputs int
	mirror     []byte // out_data mirror, MSB-first per byte as wired on real hardware
}

const opShiftSet = "gpio.ShiftChain.Set"

// NewShiftChain builds a chain of numOutputs virtual pins, driven by spi
// and latched by strobe. The mirror buffer starts all-zero and is pushed
// out once immediately, matching gpioShiftReg_init's startup sequence
// (strobe configured as output, cleared, zeroed buffer sent, strobe
// raised).
func NewShiftChain(spi SPIWriter, strobe Strobe, numOutputs int) (*ShiftChain, error) {
	if numOutputs <= 0 {
		return nil, rterr.New(opShiftSet, rterr.Inval)
	}
	nBytes := (numOutputs + 7) / 8
	c := &ShiftChain{spi: spi, strobe: strobe, numOutputs: numOutputs, mirror: make([]byte, nBytes)}
	if err := c.push(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ShiftChain) index(pin int) (byteIdx int, bit uint, err error) {
	if pin < 0 || pin >= c.numOutputs {
		return 0, 0, rterr.New(opShiftSet, rterr.Inval)
	}
	far := c.numOutputs - 1 - pin
	return far / 8, uint(pin % 8), nil
}

// push clears the strobe, resends the full mirror buffer, then raises the
// strobe to latch it, the same bracket gpio_shiftReg.c runs under a
// disabled-interrupt critical section; here a mutex stands in for that.
func (c *ShiftChain) push() error {
	if err := c.strobe.Clear(); err != nil {
		return err
	}
	if err := c.spi.Send(c.mirror); err != nil {
		return err
	}
	return c.strobe.Set()
}

func (c *ShiftChain) Set(pin int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, bit, err := c.index(pin)
	if err != nil {
		return err
	}
	c.mirror[b] |= 1 << bit
	return c.push()
}

func (c *ShiftChain) Clear(pin int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, bit, err := c.index(pin)
	if err != nil {
		return err
	}
	c.mirror[b] &^= 1 << bit
	return c.push()
}

// Read returns the mirror's last-written state for pin. The chain is
// output-only, so this never samples hardware; it is provided so callers
// that read-modify-write a virtual pin behave the same as callers of a
// native port.
func (c *ShiftChain) Read(pin int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, bit, err := c.index(pin)
	if err != nil {
		return false, err
	}
	return c.mirror[b]&(1<<bit) != 0, nil
}

// Mode always fails: a shift-register output chain has no input/alternate
// function concept.
func (c *ShiftChain) Mode(pin int, mode Mode, altFunc int) error {
	return staticModeError(opMode)
}
