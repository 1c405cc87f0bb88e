// Package pool implements the fixed-table and dynamic free-list block
// pools built atop a memseg.Segment.
//
// Grounded on original_source/rtos/uC-LIB/lib_mem.c's Mem_PoolCreate/
// Mem_PoolBlkGet/Mem_PoolBlkFree and, for the free-table recycling idiom,
// on the new_count/delete_count bookkeeping style in src/rrbb.go — replaced
// here with a real LIFO table for deterministic reuse rather than leak
// counting.
package pool

import (
	"sync"

	"github.com/openrtx/runtime/internal/memseg"
	"github.com/openrtx/runtime/internal/rterr"
)

const (
	opFixedCreate = "pool.Fixed.Create"
	opFixedGet    = "pool.Fixed.Get"
	opFixedFree   = "pool.Fixed.Free"
)

// Fixed is a preallocated block table with a LIFO free-index cursor.
// Blocks are addresses (offsets into the backing segment's storage), not
// Go pointers: the pool owns a contiguous byte range and hands out
// sub-slices of it.
type Fixed struct {
	mu sync.Mutex

	seg        *memseg.Segment
	start      uint64
	blockSize  uint64
	blockCount uint64
	table      []uint64 // table[0:cursor) holds free block addresses
	cursor     uint64
	argCheck   bool
}

func roundUpU64(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// NewFixed allocates blockCount blocks of blockSize (rounded up to
// blockAlign) from seg in one contiguous chunk, plus a side table of
// blockCount addresses, all pre-filled as free. argCheck enables stronger
// Free() precondition checks (bounds, alignment, and already-in-pool
// detection).
func NewFixed(seg *memseg.Segment, blockCount int, blockSize, blockAlign uint64, argCheck bool) (*Fixed, error) {
	if blockCount <= 0 {
		return nil, rterr.New(opFixedCreate, rterr.InvalidBlkNbr)
	}
	if blockSize == 0 {
		return nil, rterr.New(opFixedCreate, rterr.InvalidBlkSize)
	}
	if blockAlign == 0 || blockAlign&(blockAlign-1) != 0 {
		return nil, rterr.New(opFixedCreate, rterr.InvalidBlkAlign)
	}

	effSize := roundUpU64(blockSize, blockAlign)
	start, err := seg.AllocHW(nil, effSize*uint64(blockCount), blockAlign)
	if err != nil {
		return nil, err
	}

	p := &Fixed{
		seg:        seg,
		start:      start,
		blockSize:  effSize,
		blockCount: uint64(blockCount),
		table:      make([]uint64, blockCount),
		argCheck:   argCheck,
	}
	for i := 0; i < blockCount; i++ {
		p.table[i] = start + uint64(i)*effSize
	}
	p.cursor = uint64(blockCount)
	return p, nil
}

// Get pops the most recently freed block (or, on first use, the
// highest-indexed preallocated block).
func (p *Fixed) Get() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor == 0 {
		return 0, rterr.New(opFixedGet, rterr.PoolEmpty)
	}
	p.cursor--
	addr := p.table[p.cursor]
	p.table[p.cursor] = 0
	return addr, nil
}

// Free pushes block back onto the table.
func (p *Fixed) Free(block uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if block == 0 {
		return rterr.New(opFixedFree, rterr.InvalidBlkAddr)
	}
	if p.cursor == p.blockCount {
		return rterr.New(opFixedFree, rterr.PoolFull)
	}

	if p.argCheck {
		if block < p.start || (block-p.start)%p.blockSize != 0 ||
			block > p.start+(p.blockCount-1)*p.blockSize {
			return rterr.New(opFixedFree, rterr.InvalidBlkAddr)
		}
		for i := uint64(0); i < p.cursor; i++ {
			if p.table[i] == block {
				return rterr.New(opFixedFree, rterr.InvalidBlkAddrInPool)
			}
		}
	}

	p.table[p.cursor] = block
	p.cursor++
	return nil
}

// BlockSize returns the effective (alignment-rounded) block size.
func (p *Fixed) BlockSize() uint64 { return p.blockSize }

// BlockCount returns the total number of blocks the pool was created with.
func (p *Fixed) BlockCount() uint64 { return p.blockCount }

// Cursor returns the number of currently free blocks.
func (p *Fixed) Cursor() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Bytes returns the byte range of a block within the owning segment's
// storage, for callers that need to read/write the block contents.
func (p *Fixed) Bytes(block uint64) []byte {
	off := block - p.seg.Base()
	return p.seg.Storage[off : off+p.blockSize]
}
