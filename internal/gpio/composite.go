package gpio

import "github.com/openrtx/runtime/internal/rterr"

const opComposite = "gpio.Composite"

// Range maps a contiguous span of logical pin numbers onto one backend
// (a Native port or a ShiftChain), offset by Base.
type Range struct {
	Backend Pin
	Base    int // first logical pin number this backend answers for
	Count   int
}

// Composite presents several backends (e.g. one native MCU port plus one
// or more shift-register chains) as a single logical pin space, the way a
// board's schematic freely mixes MCU-native lines with expander outputs
// for LEDs, PTT, and band-switch relays.
type Composite struct {
	ranges []Range
}

// NewComposite builds a Composite over the given ranges. Ranges must not
// overlap; they need not be contiguous or sorted.
func NewComposite(ranges ...Range) (*Composite, error) {
	for i, a := range ranges {
		for _, b := range ranges[i+1:] {
			if a.Base < b.Base+b.Count && b.Base < a.Base+a.Count {
				return nil, rterr.New(opComposite, rterr.Inval)
			}
		}
	}
	cp := make([]Range, len(ranges))
	copy(cp, ranges)
	return &Composite{ranges: cp}, nil
}

func (c *Composite) resolve(pin int) (Pin, int, error) {
	for _, r := range c.ranges {
		if pin >= r.Base && pin < r.Base+r.Count {
			return r.Backend, pin - r.Base, nil
		}
	}
	return nil, 0, rterr.New(opComposite, rterr.Inval)
}

func (c *Composite) Set(pin int) error {
	b, local, err := c.resolve(pin)
	if err != nil {
		return err
	}
	return b.Set(local)
}

func (c *Composite) Clear(pin int) error {
	b, local, err := c.resolve(pin)
	if err != nil {
		return err
	}
	return b.Clear(local)
}

func (c *Composite) Read(pin int) (bool, error) {
	b, local, err := c.resolve(pin)
	if err != nil {
		return false, err
	}
	return b.Read(local)
}

func (c *Composite) Mode(pin int, mode Mode, altFunc int) error {
	b, local, err := c.resolve(pin)
	if err != nil {
		return err
	}
	return b.Mode(local, mode, altFunc)
}
