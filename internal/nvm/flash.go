package nvm

import (
	"github.com/openrtx/runtime/internal/rterr"
)

const opFlash = "nvm.FlashDevice"

// SectorRegion describes a contiguous run of equally-sized erase sectors
// within a flash part, mirroring original_source's STM32FlashArea: Low/High
// bound the region's address range and FirstSector is the index of its
// first sector. High == UnboundedHigh (0xFFFFFFFF_FFFFFFFF) means "last region,
// clamp to the device's total reported size" — heterogeneous sector sizes
// within one part (e.g. 16 KiB x4, 64 KiB x1, 128 KiB xN) are expressed as
// consecutive SectorRegions.
type SectorRegion struct {
	Low, High   uint64
	EraseUnit   uint64
	FirstSector uint64
}

// UnboundedHigh is the "clamp to device size" sentinel for SectorRegion.High.
const UnboundedHigh = 0xFFFFFFFF_FFFFFFFF

// FlashDevice is a hosted (in-process) simulator of a NOR flash part: a
// byte buffer with erased-state 0xFF, plus a sector table for resolving
// erase requests to sector numbers. Writes are byte-granular; Info.WriteUnit
// is reported by Params but not enforced. Erases must be aligned to
// Info.EraseUnit. It stands in
// for the platform/drivers/NVM/flash_stm32.c backend in environments with
// no real flash controller, as a hosted Linux test backend.
type FlashDevice struct {
	info    Info
	size    uint64
	data    []byte
	regions []SectorRegion
}

// NewFlashDevice creates a simulated flash device of the given total size,
// already erased (all 0xFF), described by the given sector regions.
func NewFlashDevice(size uint64, info Info, regions []SectorRegion) *FlashDevice {
	info.Caps |= CapFlash
	d := &FlashDevice{
		info:    info,
		size:    size,
		data:    make([]byte, size),
		regions: regions,
	}
	for i := range d.data {
		d.data[i] = 0xFF
	}
	return d
}

func (d *FlashDevice) Params() Info { return d.info }
func (d *FlashDevice) Size() uint64 { return d.size }

func (d *FlashDevice) bounds(addr, n uint64) error {
	if addr+n > d.size {
		return rterr.New(opFlash, rterr.Inval)
	}
	return nil
}

// Read copies len(data) bytes starting at addr.
func (d *FlashDevice) Read(addr uint64, data []byte) error {
	if err := d.bounds(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(data, d.data[addr:addr+uint64(len(data))])
	return nil
}

// Write copies data into the device at addr. Real NOR flash can only clear
// bits (1 -> 0) without an intervening erase; the simulator enforces the
// same rule so tests that skip erase see the same corruption a real part
// would produce, rather than succeeding silently.
func (d *FlashDevice) Write(addr uint64, data []byte) error {
	if err := d.bounds(addr, uint64(len(data))); err != nil {
		return err
	}
	for i, b := range data {
		d.data[addr+uint64(i)] &= b
	}
	return nil
}

func (d *FlashDevice) resolveSector(addr uint64) (uint64, error) {
	for _, r := range d.regions {
		high := r.High
		if high == UnboundedHigh {
			high = d.size - 1
		}
		if addr >= r.Low && addr <= high {
			return r.FirstSector + (addr-r.Low)/r.EraseUnit, nil
		}
	}
	return 0, rterr.New(opFlash, rterr.Inval)
}

// Erase resets size bytes starting at addr to the erased value (0xFF),
// resolving the affected sector(s) via the region table first so a caller
// targeting a heterogeneous device gets the same INVAL/IO behavior a real
// part would for a misaligned request.
func (d *FlashDevice) Erase(addr, size uint64) error {
	if err := d.bounds(addr, size); err != nil {
		return err
	}
	unit := uint64(d.info.EraseUnit)
	if unit == 0 || addr%unit != 0 || size%unit != 0 {
		return rterr.New(opFlash, rterr.Inval)
	}
	sectors := size / unit
	for i := uint64(0); i < sectors; i++ {
		sectorAddr := addr + i*unit
		if _, err := d.resolveSector(sectorAddr); err != nil {
			return err
		}
		for b := uint64(0); b < unit; b++ {
			d.data[sectorAddr+b] = 0xFF
		}
	}
	return nil
}

// Sync is a no-op: the simulator has no write buffering to flush.
func (d *FlashDevice) Sync() error { return nil }
