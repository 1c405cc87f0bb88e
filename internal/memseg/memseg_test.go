package memseg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/openrtx/runtime/internal/rterr"
)

func TestCreateRejectsZeroSize(t *testing.T) {
	r := &Registry{}
	_, err := r.Create("heap", make([]byte, 10), 0x1000, 0, 1, false)
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.InvalidSegSize))
}

func TestCreateRejectsOverlap(t *testing.T) {
	r := &Registry{}
	_, err := r.Create("a", make([]byte, 64), 0x1000, 64, 1, false)
	require.NoError(t, err)

	_, err = r.Create("b", make([]byte, 64), 0x1020, 64, 1, false)
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.InvalidSegOverlap))
}

func TestCreateRejectsExactDuplicate(t *testing.T) {
	r := &Registry{}
	_, err := r.Create("a", make([]byte, 64), 0x1000, 64, 1, false)
	require.NoError(t, err)

	_, err = r.Create("a-again", make([]byte, 64), 0x1000, 64, 1, false)
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.InvalidSegExists))
}

func TestCreateRejectsBadPaddingAlign(t *testing.T) {
	r := &Registry{}
	_, err := r.Create("a", make([]byte, 64), 0x1000, 64, 3, false)
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.InvalidSegAlign))
}

// TestBumpAllocationThenOverflowReportsDeficit exercises a bump allocation
// followed by an overflow. The overflow's reported deficit is derived
// directly from the bump algorithm (next_after - (end+1)): with next_free
// at 0x1024 and end+1 at 0x1040, a 40-byte unaligned request computes
// next_after = 0x104C, for a deficit of 0x104C-0x1040 = 12 bytes.
func TestBumpAllocationThenOverflowReportsDeficit(t *testing.T) {
	r := &Registry{}
	seg, err := r.Create("heap", make([]byte, 64), 0x1000, 64, 1, false)
	require.NoError(t, err)

	addr, err := seg.Alloc(nil, 10, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), addr)
	assert.Equal(t, uint64(0x100A), seg.NextFree())

	addr, err = seg.Alloc(nil, 20, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1010), addr)
	assert.Equal(t, uint64(0x1024), seg.NextFree())

	_, err = seg.Alloc(nil, 40, 1, 1)
	require.Error(t, err)
	assert.True(t, rterr.Is(err, rterr.SegOvf))
	var e *rterr.Error
	require.True(t, rterr.As(err, &e))
	assert.Equal(t, "deficit=12", e.Detail)
}

func TestAllocRespectsPaddingAlignForSubsequentAlloc(t *testing.T) {
	r := &Registry{}
	seg, err := r.Create("heap", make([]byte, 256), 0x2000, 256, 16, false)
	require.NoError(t, err)

	addr, err := seg.Alloc(nil, 3, 1, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), addr)
	// next_free must land on a 16-byte boundary even though align was 1.
	assert.Equal(t, uint64(0), seg.NextFree()%16)
}

func TestClearRejectedWhenTracking(t *testing.T) {
	r := &Registry{}
	seg, err := r.Create("heap", make([]byte, 64), 0x3000, 64, 1, true)
	require.NoError(t, err)
	assert.Error(t, seg.Clear())
}

func TestClearResetsNextFree(t *testing.T) {
	r := &Registry{}
	seg, err := r.Create("heap", make([]byte, 64), 0x4000, 64, 1, false)
	require.NoError(t, err)
	_, err = seg.Alloc(nil, 10, 1, 1)
	require.NoError(t, err)
	require.NoError(t, seg.Clear())
	assert.Equal(t, seg.Base(), seg.NextFree())
}

func TestDebugTrackingAccumulatesByPointerIdentity(t *testing.T) {
	r := &Registry{}
	seg, err := r.Create("heap", make([]byte, 256), 0x5000, 256, 1, true)
	require.NoError(t, err)

	nameA := "widget"
	nameB := "widget" // distinct string header/pointer even if equal content
	_, err = seg.Alloc(&nameA, 4, 1, 1)
	require.NoError(t, err)
	_, err = seg.Alloc(&nameA, 8, 1, 1)
	require.NoError(t, err)
	_, err = seg.Alloc(&nameB, 2, 1, 1)
	require.NoError(t, err)

	recs := seg.Records()
	require.Len(t, recs, 2)
	total := map[*string]uint64{}
	for _, r := range recs {
		total[r.Name] = r.TotalBytes
	}
	assert.Equal(t, uint64(12), total[&nameA])
	assert.Equal(t, uint64(2), total[&nameB])
}

// TestAllocationsArePairwiseDisjointAndAligned checks that every successful
// allocation from a segment returns a block disjoint from every other live
// allocation and aligned to its requested alignment.
func TestAllocationsArePairwiseDisjointAndAligned(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		paddingAlign := uint64(1) << rapid.IntRange(0, 4).Draw(rt, "paddingShift")
		r := &Registry{}
		seg, err := r.Create("heap", make([]byte, 1<<16), 0x10000, 1<<16, paddingAlign, false)
		require.NoError(rt, err)

		n := rapid.IntRange(0, 40).Draw(rt, "n")
		type alloc struct {
			addr, size, align uint64
		}
		var got []alloc
		for i := 0; i < n; i++ {
			align := uint64(1) << rapid.IntRange(0, 3).Draw(rt, "alignShift")
			size := uint64(rapid.IntRange(1, 64).Draw(rt, "size"))
			addr, err := seg.Alloc(nil, size, align, paddingAlign)
			if err != nil {
				break
			}
			blockAlign := align
			if paddingAlign > blockAlign {
				blockAlign = paddingAlign
			}
			require.Zero(rt, addr%blockAlign, "addr %x not aligned to %d", addr, blockAlign)
			got = append(got, alloc{addr, size, align})
		}

		for i := range got {
			for j := range got {
				if i == j {
					continue
				}
				iEnd := got[i].addr + got[i].size
				jEnd := got[j].addr + got[j].size
				disjoint := iEnd <= got[j].addr || jEnd <= got[i].addr
				require.True(rt, disjoint, "allocations overlap: %+v vs %+v", got[i], got[j])
			}
		}
	})
}
