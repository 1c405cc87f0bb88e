package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrtx/runtime/internal/nvm"
)

func newArea(t *testing.T, size uint64) *nvm.Area {
	t.Helper()
	dev := nvm.NewEEPROMDevice(size)
	return &nvm.Area{Dev: &nvm.Device{Ops: dev}, Size: size}
}

func sampleCalData(points int) CalData {
	c := NewCalData(points)
	c.FreqAdjustMid = 0x42
	for i := 0; i < points; i++ {
		// BCD round-trips only multiples of 10Hz; the vendor encoding never
		// carries sub-10Hz resolution.
		c.RxFreq[i] = 400000000 + uint32(i)*100000
		c.TxFreq[i] = 430000000 + uint32(i)*100000
		c.TxHighPower[i] = uint8(100 + i)
		c.TxLowPower[i] = uint8(50 + i)
		c.RxSensitivity[i] = uint8(10 + i)
		c.SendIRange[i] = uint8(i)
		c.SendQRange[i] = uint8(i + 1)
		c.AnalogSendIRange[i] = uint8(i + 2)
		c.AnalogSendQRange[i] = uint8(i + 3)
	}
	return c
}

func TestSingleBandRoundTrips(t *testing.T) {
	main := newArea(t, 4096)
	secondary := newArea(t, 4096)
	want := sampleCalData(Points)
	require.NoError(t, WriteSingleBand(main, secondary, want))

	got, err := ReadSingleBand(main, secondary)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDualBandRoundTripsIndependentBands(t *testing.T) {
	main := newArea(t, 4096)
	secondary := newArea(t, 4096)
	uhf := sampleCalData(Points)
	vhf := sampleCalData(VHFPoints)
	vhf.FreqAdjustMid = 0x7

	want := DualBand{UHF: uhf, VHF: vhf}
	require.NoError(t, WriteDualBand(main, secondary, want))

	got, err := ReadDualBand(main, secondary)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NotEqual(t, got.UHF.FreqAdjustMid, got.VHF.FreqAdjustMid)
	assert.Len(t, got.VHF.RxFreq, VHFPoints)
	assert.Len(t, got.UHF.RxFreq, Points)
}

func TestSingleBandFieldsLandAtDocumentedOffsets(t *testing.T) {
	main := newArea(t, 4096)
	secondary := newArea(t, 4096)
	want := sampleCalData(Points)
	require.NoError(t, WriteSingleBand(main, secondary, want))

	mainBuf := make([]byte, mainBlockSize)
	require.NoError(t, main.Read(0, mainBuf))
	assert.Equal(t, want.FreqAdjustMid, mainBuf[offFreqAdjustMid])
	assert.Equal(t, want.TxHighPower[0], mainBuf[offTxHighPower])
	assert.Equal(t, want.TxLowPower[0], mainBuf[offTxLowPower])
	assert.Equal(t, want.RxSensitivity[0], mainBuf[offRxSensitivity])
	assert.Equal(t, want.SendQRange[0], mainBuf[offSendQRange])
	assert.Equal(t, want.AnalogSendIRange[0], mainBuf[offAnalogSendIRange])
	assert.Equal(t, want.AnalogSendQRange[0], mainBuf[offAnalogSendQRange])

	secBuf := make([]byte, secondaryBlockSize)
	require.NoError(t, secondary.Read(0, secBuf))
	assert.Equal(t, want.SendIRange[0], secBuf[offSendIRangeSecondary])
}
