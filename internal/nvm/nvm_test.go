package nvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func flashInfo16K() Info {
	return Info{WriteUnit: 1, EraseUnit: 16 * 1024, EraseCycles: 10000, Caps: CapWrite | CapErase}
}

// TestEraseWriteReadThenPartialErase exercises erase, writing a 0..255 ramp
// across 256 KiB, reading it back, then erasing the second 128 KiB half
// only. A real calibration flash region for this part sits at an absolute
// MCU address (0x08040000); the simulated device below represents that
// region on its own (StartAddr 0 within the device), since nothing in the
// test depends on the absolute address beyond identifying "this region".
func TestEraseWriteReadThenPartialErase(t *testing.T) {
	const total = 0x40000 // 256 KiB
	dev := NewFlashDevice(total, flashInfo16K(), []SectorRegion{
		{Low: 0, High: UnboundedHigh, EraseUnit: 16 * 1024, FirstSector: 0},
	})
	area := &Area{Dev: &Device{Name: "cal", Ops: dev}, StartAddr: 0, Size: total}

	require.NoError(t, area.Erase(0, total))

	buf := make([]byte, total)
	for i := range buf {
		buf[i] = byte(i % 256)
	}
	require.NoError(t, area.Write(0, buf))

	got := make([]byte, total)
	require.NoError(t, area.Read(0, got))
	for i := range got {
		assert.Equal(t, byte(i%256), got[i], "offset %d", i)
	}

	// Erase second 128KiB half; first half unchanged, second reads 0xFF.
	require.NoError(t, area.Erase(total/2, total/2))
	require.NoError(t, area.Read(0, got))
	for i := 0; i < total/2; i++ {
		assert.Equal(t, byte(i%256), got[i], "offset %d", i)
	}
	require.NoError(t, area.Read(total/2, got[:total/2]))
	for i := 0; i < total/2; i++ {
		assert.Equal(t, byte(0xFF), got[i], "offset %d", total/2+i)
	}
}

func TestEraseRejectsMisalignedRequests(t *testing.T) {
	dev := NewFlashDevice(64*1024, flashInfo16K(), []SectorRegion{
		{Low: 0, High: UnboundedHigh, EraseUnit: 16 * 1024, FirstSector: 0},
	})
	area := &Area{Dev: &Device{Ops: dev}, Size: 64 * 1024}

	assert.Error(t, area.Erase(100, 16*1024))    // addr not erase-unit aligned
	assert.Error(t, area.Erase(0, 100))          // size not erase-unit aligned
	assert.Error(t, area.Erase(0, 128*1024))     // exceeds area
	assert.NoError(t, area.Erase(0, 16*1024))
}

func TestPartitionTranslatesOffset(t *testing.T) {
	dev := NewEEPROMDevice(4096)
	area := &Area{
		Dev:  &Device{Ops: dev},
		Size: 4096,
		Partitions: []Partition{
			{Offset: 0, Size: 1024},
			{Offset: 1024, Size: 1024},
		},
	}

	require.NoError(t, area.WritePartition(1, 0, []byte{0xDE, 0xAD}))
	direct := make([]byte, 2)
	require.NoError(t, area.Read(1024, direct))
	assert.Equal(t, []byte{0xDE, 0xAD}, direct)
}

func TestWriteInvokesSyncEvenOnAutoSyncDevice(t *testing.T) {
	dev := &countingSyncDevice{EEPROMDevice: NewEEPROMDevice(64)}
	area := &Area{Dev: &Device{Ops: dev}, Size: 64}
	require.NoError(t, area.Write(0, []byte{1, 2, 3}))
	assert.Equal(t, 1, dev.syncs)
}

type countingSyncDevice struct {
	*EEPROMDevice
	syncs int
}

func (d *countingSyncDevice) Sync() error {
	d.syncs++
	return d.EEPROMDevice.Sync()
}

// TestWriteThenReadRoundTrips checks that any write followed by a read of
// the same range returns exactly what was written, for the
// not-straddling-an-intervening-erase case.
func TestWriteThenReadRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dev := NewFlashDevice(64*1024, flashInfo16K(), []SectorRegion{
			{Low: 0, High: UnboundedHigh, EraseUnit: 16 * 1024, FirstSector: 0},
		})
		area := &Area{Dev: &Device{Ops: dev}, Size: 64 * 1024}
		require.NoError(rt, area.Erase(0, 64*1024))

		addr := uint64(rapid.IntRange(0, 64*1024-1).Draw(rt, "addr"))
		maxLen := 64*1024 - int(addr)
		n := rapid.IntRange(0, maxLen).Draw(rt, "n")
		buf := rapid.SliceOfN(rapid.Byte(), n, n).Draw(rt, "buf")

		require.NoError(rt, area.Write(addr, buf))
		got := make([]byte, n)
		require.NoError(rt, area.Read(addr, got))
		assert.Equal(rt, buf, got)
	})
}

// TestEraseYieldsErasedValue checks that an erased region reads back as
// all-0xFF regardless of what was written there before.
func TestEraseYieldsErasedValue(t *testing.T) {
	dev := NewFlashDevice(64*1024, flashInfo16K(), []SectorRegion{
		{Low: 0, High: UnboundedHigh, EraseUnit: 16 * 1024, FirstSector: 0},
	})
	area := &Area{Dev: &Device{Ops: dev}, Size: 64 * 1024}
	require.NoError(t, area.Write(0, []byte{1, 2, 3, 4}))
	require.NoError(t, area.Erase(0, 16*1024))

	got := make([]byte, 16*1024)
	require.NoError(t, area.Read(0, got))
	for _, b := range got {
		assert.Equal(t, byte(0xFF), b)
	}
}
