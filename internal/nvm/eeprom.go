package nvm

import "github.com/openrtx/runtime/internal/rterr"

const opEEPROM = "nvm.EEPROMDevice"

// EEPROMDevice is a hosted simulator of a byte-writable EEPROM: unlike
// FlashDevice it supports arbitrary-value writes (no erase-before-write
// rule) and advertises AUTO_SYNC, matching legacy write_unit=1 parts.
type EEPROMDevice struct {
	info Info
	data []byte
}

// NewEEPROMDevice creates a simulated EEPROM of the given size.
func NewEEPROMDevice(size uint64) *EEPROMDevice {
	return &EEPROMDevice{
		info: Info{WriteUnit: 1, EraseUnit: 1, EraseCycles: 100000, Caps: CapEEPROM | CapWrite | CapAutoSync},
		data: make([]byte, size),
	}
}

func (d *EEPROMDevice) Params() Info { return d.info }
func (d *EEPROMDevice) Size() uint64 { return uint64(len(d.data)) }

func (d *EEPROMDevice) bounds(addr, n uint64) error {
	if addr+n > uint64(len(d.data)) {
		return rterr.New(opEEPROM, rterr.Inval)
	}
	return nil
}

func (d *EEPROMDevice) Read(addr uint64, data []byte) error {
	if err := d.bounds(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(data, d.data[addr:addr+uint64(len(data))])
	return nil
}

func (d *EEPROMDevice) Write(addr uint64, data []byte) error {
	if err := d.bounds(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(d.data[addr:addr+uint64(len(data))], data)
	return nil
}

// Erase on EEPROM resets the region to zero; real byte-writable EEPROM
// parts have no sector-erase concept, so there is no alignment constraint
// beyond staying in bounds.
func (d *EEPROMDevice) Erase(addr, size uint64) error {
	if err := d.bounds(addr, size); err != nil {
		return err
	}
	for i := uint64(0); i < size; i++ {
		d.data[addr+i] = 0
	}
	return nil
}

func (d *EEPROMDevice) Sync() error { return nil }
