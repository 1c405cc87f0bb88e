package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/openrtx/runtime/internal/memseg"
	"github.com/openrtx/runtime/internal/rterr"
)

func newSeg(t *testing.T, base, size uint64) *memseg.Segment {
	t.Helper()
	r := &memseg.Registry{}
	seg, err := r.Create("t", make([]byte, size), base, size, 1, false)
	require.NoError(t, err)
	return seg
}

func TestFixedPoolBasics(t *testing.T) {
	seg := newSeg(t, 0x1000, 4096)
	p, err := NewFixed(seg, 4, 16, 4, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), p.Cursor())

	a, err := p.Get()
	require.NoError(t, err)
	b, err := p.Get()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, p.Free(a))
	require.Error(t, p.Free(a)) // already present in the free table

	c, err := p.Get()
	require.NoError(t, err)
	_ = c
	require.NoError(t, p.Free(b))
}

func TestFixedPoolEmptyAndFull(t *testing.T) {
	seg := newSeg(t, 0x2000, 4096)
	p, err := NewFixed(seg, 2, 8, 4, false)
	require.NoError(t, err)

	a, _ := p.Get()
	b, _ := p.Get()
	_, err = p.Get()
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.PoolEmpty))

	require.NoError(t, p.Free(a))
	require.NoError(t, p.Free(b))
	_, err = p.Get()
	require.NoError(t, err)
	_, err = p.Get()
	require.NoError(t, err)
	err = p.Free(a)
	require.NoError(t, err)
	err = p.Free(b)
	require.NoError(t, err)
	err = p.Free(0x123456) // pool is full again: every block is back in the table
	require.Error(t, err)
}

func TestFixedPoolRejectsNullAndForeignAddr(t *testing.T) {
	seg := newSeg(t, 0x3000, 4096)
	p, err := NewFixed(seg, 2, 8, 4, true)
	require.NoError(t, err)
	require.Error(t, p.Free(0))

	block, err := p.Get()
	require.NoError(t, err)
	require.Error(t, p.Free(block+1)) // misaligned, not a real block addr
}

// TestDynamicPoolGrowsThenRecyclesFreedBlock exercises a dynamic pool
// growing once its initial blocks are exhausted, and freeing returns the
// exact same address on the next Get.
func TestDynamicPoolGrowsThenRecyclesFreedBlock(t *testing.T) {
	seg := newSeg(t, 0x8000, 1<<16)
	p, err := NewDynamic(seg, 16, 4, 1, 2, 4)
	require.NoError(t, err)

	a1, err := p.Get()
	require.NoError(t, err)
	a2, err := p.Get()
	require.NoError(t, err)
	a3, err := p.Get() // pool grows
	require.NoError(t, err)
	a4, err := p.Get() // pool grows again
	require.NoError(t, err)
	assert.Equal(t, uint64(4), p.Allocated())

	_, err = p.Get()
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.PoolEmpty))

	require.NoError(t, p.Free(a2))
	again, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, a2, again)

	_ = a1
	_ = a3
	_ = a4
}

// TestFreedBlockReuseDoesNotCorruptLiveBlocks exercises the intrusive free
// list: writing a pattern into a freed block's pointer word is allowed to
// be clobbered by the pool, and must not corrupt any other block.
func TestFreedBlockReuseDoesNotCorruptLiveBlocks(t *testing.T) {
	seg := newSeg(t, 0x9000, 1<<16)
	p, err := NewDynamic(seg, 16, 4, 1, 2, Unlimited)
	require.NoError(t, err)

	a, err := p.Get()
	require.NoError(t, err)
	b, err := p.Get()
	require.NoError(t, err)

	for i := range p.blockBytes(a) {
		p.blockBytes(a)[i] = 0xAA
	}
	require.NoError(t, p.Free(a))

	got, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, a, got)

	// b's contents must be untouched by freeing/regetting a.
	for _, bb := range p.blockBytes(b) {
		assert.NotEqual(t, byte(0xAA), bb)
	}
}

func TestDynamicPoolRemaining(t *testing.T) {
	seg := newSeg(t, 0xA000, 1<<16)
	p, err := NewDynamic(seg, 16, 4, 1, 0, 3)
	require.NoError(t, err)

	rem, err := p.Remaining()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rem)

	_, err = p.Get()
	require.NoError(t, err)
	rem, err = p.Remaining()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rem)
}

func TestDynamicPoolUnlimitedRemainingFails(t *testing.T) {
	seg := newSeg(t, 0xB000, 1<<16)
	p, err := NewDynamic(seg, 16, 4, 1, 0, Unlimited)
	require.NoError(t, err)
	_, err = p.Remaining()
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.PoolUnlimited))
}

// TestFreeListHasNoCycleAndMatchesAllocatedCount checks that walking the
// intrusive free list stops within the number of blocks ever granted (no
// cycle) and that Allocated() matches the number of blocks still held.
func TestFreeListHasNoCycleAndMatchesAllocatedCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seg := newSeg(t, 0xC000, 1<<20)
		p, err := NewDynamic(seg, 16, 4, 1, 0, Unlimited)
		require.NoError(rt, err)

		var live []uint64
		grown := 0
		ops := rapid.IntRange(1, 60).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			if len(live) == 0 || rapid.Bool().Draw(rt, "get") {
				addr, err := p.Get()
				require.NoError(rt, err)
				live = append(live, addr)
				grown++
			} else {
				idx := rapid.IntRange(0, len(live)-1).Draw(rt, "idx")
				require.NoError(rt, p.Free(live[idx]))
				live = append(live[:idx], live[idx+1:]...)
			}
		}

		freeList := p.WalkFreeList(grown + 1)
		require.LessOrEqual(rt, len(freeList), grown, "free list longer than blocks ever granted: cycle?")
		assert.Equal(rt, uint64(len(live)), p.Allocated())
	})
}
