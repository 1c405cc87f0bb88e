// Package nvm implements the non-volatile memory device model: device
// descriptors, an op-table capability set, areas and partitions (spec
// component C5).
//
// Grounded on original_source/openrtx/include/interfaces/nvmem.h and
// core/nvmem_access.h (nvmArea_read/write/erase, nvmArea_readPartition
// etc.) and, for the sector-table resolution logic, on
// original_source/platform/drivers/NVM/flash_stm32.{h,c}. The teacher's
// serial_port.go / kissserial.go op-table-over-an-opaque-handle idiom is
// the Go-side precedent for expressing this as an interface instead of a
// C function-pointer struct.
package nvm

import (
	"github.com/openrtx/runtime/internal/rterr"
)

const (
	opRead  = "nvm.Area.Read"
	opWrite = "nvm.Area.Write"
	opErase = "nvm.Area.Erase"
)

// Caps is the capability flag set describing an NVM device's supported
// operations.
type Caps uint8

const (
	CapFlash Caps = 1 << iota
	CapEEPROM
	CapWrite
	CapErase
	CapAutoSync
)

// Has reports whether c includes flag.
func (c Caps) Has(flag Caps) bool { return c&flag != 0 }

// Info is the static descriptor of an NVM device.
type Info struct {
	WriteUnit  uint32 // smallest writable granule, bytes
	EraseUnit  uint32 // erase block size, bytes
	EraseCycles uint32
	Caps       Caps
}

// Ops is the device op-table: the sole polymorphism for storage backends,
// preferring a capability-set interface over virtual inheritance.
type Ops interface {
	Params() Info
	Size() uint64
	Read(addr uint64, data []byte) error
	Write(addr uint64, data []byte) error
	Erase(addr uint64, size uint64) error
	// Sync commits any buffered writes. AUTO_SYNC devices still implement
	// it as a no-op so area code can call it unconditionally.
	Sync() error
}

// Device pairs an Ops implementation with its opaque identity.
type Device struct {
	Name string
	Ops  Ops
}

// Partition is an offset/size pair relative to an Area.
type Partition struct {
	Offset uint64
	Size   uint64
}

// Area is a device plus a start address within it and an optional
// partition table.
type Area struct {
	Dev        *Device
	StartAddr  uint64
	Size       uint64
	Partitions []Partition
}

// Params returns the backing device's static info.
func (a *Area) Params() Info { return a.Dev.Ops.Params() }

func (a *Area) boundsCheck(op string, addr, n uint64) error {
	if addr+n > a.Size {
		return rterr.Newf(op, rterr.Inval, "addr=%d len=%d exceeds area size=%d", addr, n, a.Size)
	}
	return nil
}

// Read performs a byte-granular read, translating addr by the area's
// start_addr before delegating to the device.
func (a *Area) Read(addr uint64, data []byte) error {
	if err := a.boundsCheck(opRead, addr, uint64(len(data))); err != nil {
		return err
	}
	return a.Dev.Ops.Read(a.StartAddr+addr, data)
}

// Write performs a byte-granular write. After a successful write the area
// invokes Sync unconditionally: the sync hook, when present, runs after
// every successful write even on auto-sync devices.
func (a *Area) Write(addr uint64, data []byte) error {
	if err := a.boundsCheck(opWrite, addr, uint64(len(data))); err != nil {
		return err
	}
	if err := a.Dev.Ops.Write(a.StartAddr+addr, data); err != nil {
		return err
	}
	return a.Dev.Ops.Sync()
}

// Erase erases a device-aligned region. addr must be a multiple of the
// device's erase unit, size must be a multiple of it, and addr+size must
// not exceed the device.
func (a *Area) Erase(addr, size uint64) error {
	if err := a.boundsCheck(opErase, addr, size); err != nil {
		return err
	}
	info := a.Params()
	if info.EraseUnit == 0 || addr%uint64(info.EraseUnit) != 0 || size%uint64(info.EraseUnit) != 0 {
		return rterr.New(opErase, rterr.Inval)
	}
	return a.Dev.Ops.Erase(a.StartAddr+addr, size)
}

func (a *Area) partition(pNum int) (*Partition, error) {
	if pNum < 0 || pNum >= len(a.Partitions) {
		return nil, rterr.New("nvm.Area.partition", rterr.Inval)
	}
	return &a.Partitions[pNum], nil
}

// ReadPartition reads from partition pNum, adding its offset on top of the
// area's own translation.
func (a *Area) ReadPartition(pNum int, offset uint64, data []byte) error {
	p, err := a.partition(pNum)
	if err != nil {
		return err
	}
	return a.Read(p.Offset+offset, data)
}

// WritePartition writes to partition pNum.
func (a *Area) WritePartition(pNum int, offset uint64, data []byte) error {
	p, err := a.partition(pNum)
	if err != nil {
		return err
	}
	return a.Write(p.Offset+offset, data)
}

// ErasePartition erases within partition pNum.
func (a *Area) ErasePartition(pNum int, offset, size uint64) error {
	p, err := a.partition(pNum)
	if err != nil {
		return err
	}
	return a.Erase(p.Offset+offset, size)
}
