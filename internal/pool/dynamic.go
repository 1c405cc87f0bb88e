package pool

import (
	"sync"

	"github.com/openrtx/runtime/internal/membuf"
	"github.com/openrtx/runtime/internal/memseg"
	"github.com/openrtx/runtime/internal/rterr"
)

const (
	opDynCreate = "pool.Dynamic.Create"
	opDynGet    = "pool.Dynamic.Get"
	opDynFree   = "pool.Dynamic.Free"
	opDynRem    = "pool.Dynamic.Remaining"

	// pointerSize is the width of the intrusive free-list next-pointer we
	// store inside every freed block (an 8-byte address offset, per
	// internal/membuf.StoreU64LE/LoadU64LE), standing in for the native
	// pointer size the spec's block_align computation references.
	pointerSize = 8

	// Unlimited is the sentinel max_count meaning "no ceiling".
	Unlimited = 0
)

// Dynamic is the lazy-growing pool with an intrusive free list threaded
// through freed blocks (spec component C4). The free-list "next" pointer is
// never a real Go pointer — see SPEC_FULL.md design notes — it is an 8-byte
// address offset written into the block's own storage via
// internal/membuf, so the representation of "freed block owned by the
// pool" vs. "live block owned by the caller" stays an explicit state
// transition rather than aliased unsafe memory.
type Dynamic struct {
	mu sync.Mutex

	seg          *memseg.Segment
	blockSize    uint64 // effective size, already rounded up
	blockAlign   uint64
	paddingAlign uint64
	maxCount     uint64 // Unlimited sentinel = 0
	allocated    uint64
	head         uint64 // 0 means nil; blocks never live at address 0 by construction
	hasHead      bool
}

// NewDynamic creates a dynamic pool. If initialCount > 0, that many blocks
// are allocated from seg up front and threaded into the free list.
func NewDynamic(seg *memseg.Segment, blockSize, blockAlign, paddingAlign uint64, initialCount, maxCount int) (*Dynamic, error) {
	if blockSize == 0 {
		return nil, rterr.New(opDynCreate, rterr.InvalidBlkSize)
	}
	if blockAlign == 0 || blockAlign&(blockAlign-1) != 0 {
		return nil, rterr.New(opDynCreate, rterr.InvalidBlkAlign)
	}
	if maxCount != Unlimited && initialCount > maxCount {
		return nil, rterr.New(opDynCreate, rterr.InvalidBlkNbr)
	}

	effAlign := blockAlign
	if pointerSize > effAlign {
		effAlign = pointerSize
	}
	if paddingAlign > effAlign {
		effAlign = paddingAlign
	}
	effSize := blockSize
	if pointerSize > effSize {
		effSize = pointerSize
	}
	effSize = roundUpU64(effSize, effAlign)

	p := &Dynamic{
		seg:          seg,
		blockSize:    effSize,
		blockAlign:   effAlign,
		paddingAlign: paddingAlign,
		maxCount:     uint64(maxCount),
	}

	if initialCount > 0 {
		start, err := seg.Alloc(nil, effSize*uint64(initialCount), effAlign, paddingAlign)
		if err != nil {
			return nil, err
		}
		for i := 0; i < initialCount; i++ {
			addr := start + uint64(i)*effSize
			var next uint64
			if i+1 < initialCount {
				next = start + uint64(i+1)*effSize
			}
			p.writeNext(addr, next)
		}
		p.head = start
		p.hasHead = true
	}

	return p, nil
}

func (p *Dynamic) blockBytes(addr uint64) []byte {
	off := addr - p.seg.Base()
	return p.seg.Storage[off : off+p.blockSize]
}

func (p *Dynamic) writeNext(addr, next uint64) {
	membuf.StoreU64LE(p.blockBytes(addr), next)
}

func (p *Dynamic) readNext(addr uint64) uint64 {
	return membuf.LoadU64LE(p.blockBytes(addr))
}

// Get returns a free block address, growing the pool by one block from the
// backing segment if the free list is empty.
func (p *Dynamic) Get() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.maxCount != Unlimited && p.allocated == p.maxCount {
		return 0, rterr.New(opDynGet, rterr.PoolEmpty)
	}

	if p.hasHead {
		addr := p.head
		next := p.readNext(addr)
		if next == 0 {
			p.hasHead = false
			p.head = 0
		} else {
			p.head = next
		}
		p.allocated++
		return addr, nil
	}

	addr, err := p.seg.Alloc(nil, p.blockSize, p.blockAlign, p.paddingAlign)
	if err != nil {
		return 0, err
	}
	p.allocated++
	return addr, nil
}

// Free returns block to the pool, pushing it onto the head of the free
// list. The block's first pointerSize bytes are overwritten; callers must
// not rely on content surviving a free/get cycle.
func (p *Dynamic) Free(block uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if block == 0 {
		return rterr.New(opDynFree, rterr.InvalidBlkAddr)
	}
	if p.maxCount != Unlimited && p.allocated == 0 {
		return rterr.New(opDynFree, rterr.PoolFull)
	}

	p.allocated--
	if p.hasHead {
		p.writeNext(block, p.head)
	} else {
		p.writeNext(block, 0)
	}
	p.head = block
	p.hasHead = true
	return nil
}

// Remaining returns max_count - allocated_count for a bounded pool.
func (p *Dynamic) Remaining() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxCount == Unlimited {
		return 0, rterr.New(opDynRem, rterr.PoolUnlimited)
	}
	return p.maxCount - p.allocated, nil
}

// Allocated returns the number of blocks currently handed out (not on the
// free list).
func (p *Dynamic) Allocated() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// BlockSize returns the effective (rounded) block size.
func (p *Dynamic) BlockSize() uint64 { return p.blockSize }

// WalkFreeList returns the addresses reachable from head, for tests. It
// bounds the walk at limit entries to turn an accidental cycle into a test
// failure rather than a hang.
func (p *Dynamic) WalkFreeList(limit int) []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []uint64
	if !p.hasHead {
		return out
	}
	addr := p.head
	seen := map[uint64]bool{}
	for i := 0; i < limit; i++ {
		if seen[addr] {
			break
		}
		seen[addr] = true
		out = append(out, addr)
		next := p.readNext(addr)
		if next == 0 {
			break
		}
		addr = next
	}
	return out
}
