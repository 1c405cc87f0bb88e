// Package calib decodes the radio's RF calibration data: per-band tables
// of frequency/power/sensitivity calibration points read out of NVM.
//
// Grounded on original_source/openrtx/include/calibration/calibInfo_MDx.h's
// CalData struct (9 calibration points per band for the single-band MD-3x0
// layout, 5 for the VHF half of the dual-band MD-UV3x0 layout) and on
// tests/platform/calib_read.c for the byte-level read pattern. Unlike the
// teacher's original_source reference, the on-flash field offsets here are
// fixed by the external calibration interface and must be reproduced
// exactly: this is a vendor-defined record layout, not a format this
// package is free to choose, so every offset below is named rather than
// derived from a running cursor.
package calib

import (
	"github.com/openrtx/runtime/internal/membuf"
	"github.com/openrtx/runtime/internal/nvm"
	"github.com/openrtx/runtime/internal/rterr"
)

const opRead = "calib.Read"

// Points is the calibration-point count for a single-band record and for
// the UHF half of a dual-band record.
const Points = 9

// VHFPoints is the calibration-point count for the VHF half of a
// dual-band record: the vendor layout only carries five VHF calibration
// points where the UHF half carries nine.
const VHFPoints = 5

// Fixed field offsets within the main calibration NVM region. These are
// bit-exact with the vendor layout; do not renumber them to pack the
// struct more tightly; a reader built against the real hardware's
// calibration partition depends on these exact addresses.
const (
	offFreqAdjustMid    = 0x09
	offTxHighPower      = 0x10
	offTxLowPower       = 0x20
	offRxSensitivity    = 0x30
	offSendQRange       = 0x40
	offAnalogSendIRange = 0x70
	offAnalogSendQRange = 0x80
	offFreqPairs        = 0xB0
)

// offSendIRangeSecondary is the offset of sendIrange[] within the
// *secondary* calibration NVM region (a separate, smaller area from the
// main one above).
const offSendIRangeSecondary = 0x30

// mainBlockSize and secondaryBlockSize are the strides between successive
// band records within the main and secondary regions respectively. The
// vendor layout places a single-band record's worth of header and
// power/sensitivity fields comfortably inside 256 bytes of the main
// region (the last field, the nine {rxFreq,txFreq} BCD pairs starting at
// offFreqPairs, ends at 0xB0+9*8=0xF8) and sendIrange[9] comfortably
// inside 64 bytes of the secondary region (ending at 0x30+9=0x39); a
// dual-band device's VHF record (five points instead of nine) is placed
// at exactly one mainBlockSize/secondaryBlockSize past the UHF record in
// each region. The spec text only says the VHF block sits "at distinct
// offsets in both regions" without naming them; these strides are the
// engineering choice documented in DESIGN.md.
const (
	mainBlockSize      = 256
	secondaryBlockSize = 64
)

// CalData is one band's calibration table. Field counts vary by band
// (Points for single-band/UHF, VHFPoints for a dual-band device's VHF
// half), so every per-point field is a slice sized by NewCalData rather
// than a fixed-size array.
type CalData struct {
	FreqAdjustMid uint8

	RxFreq []uint32
	TxFreq []uint32

	TxHighPower      []uint8
	TxLowPower       []uint8
	RxSensitivity    []uint8
	SendIRange       []uint8
	SendQRange       []uint8
	AnalogSendIRange []uint8
	AnalogSendQRange []uint8
}

// NewCalData allocates a CalData sized for the given calibration point
// count (Points or VHFPoints).
func NewCalData(points int) CalData {
	return CalData{
		RxFreq:           make([]uint32, points),
		TxFreq:           make([]uint32, points),
		TxHighPower:      make([]uint8, points),
		TxLowPower:       make([]uint8, points),
		RxSensitivity:    make([]uint8, points),
		SendIRange:       make([]uint8, points),
		SendQRange:       make([]uint8, points),
		AnalogSendIRange: make([]uint8, points),
		AnalogSendQRange: make([]uint8, points),
	}
}

// decodeBlock decodes one band's record out of a mainBlockSize-sliced main
// region and a secondaryBlockSize-sliced secondary region, at the fixed
// offsets above. Frequencies are stored packed-BCD in units of 10Hz
// (matching the vendor encoding); decoding unpacks the BCD digits then
// scales by 10 to recover Hz.
func decodeBlock(main, secondary []byte, points int) CalData {
	c := NewCalData(points)

	c.FreqAdjustMid = main[offFreqAdjustMid]
	copy(c.TxHighPower, main[offTxHighPower:offTxHighPower+points])
	copy(c.TxLowPower, main[offTxLowPower:offTxLowPower+points])
	copy(c.RxSensitivity, main[offRxSensitivity:offRxSensitivity+points])
	copy(c.SendQRange, main[offSendQRange:offSendQRange+points])
	copy(c.AnalogSendIRange, main[offAnalogSendIRange:offAnalogSendIRange+points])
	copy(c.AnalogSendQRange, main[offAnalogSendQRange:offAnalogSendQRange+points])

	copy(c.SendIRange, secondary[offSendIRangeSecondary:offSendIRangeSecondary+points])

	for i := 0; i < points; i++ {
		pairOff := offFreqPairs + i*8
		c.RxFreq[i] = membuf.BCDToBinary32(main[pairOff:pairOff+4]) * 10
		c.TxFreq[i] = membuf.BCDToBinary32(main[pairOff+4:pairOff+8]) * 10
	}
	return c
}

// encodeBlock is decodeBlock's inverse, writing c into mainBlockSize/
// secondaryBlockSize-sliced buffers at the same fixed offsets.
func encodeBlock(c CalData, main, secondary []byte) {
	points := len(c.RxFreq)

	main[offFreqAdjustMid] = c.FreqAdjustMid
	copy(main[offTxHighPower:offTxHighPower+points], c.TxHighPower)
	copy(main[offTxLowPower:offTxLowPower+points], c.TxLowPower)
	copy(main[offRxSensitivity:offRxSensitivity+points], c.RxSensitivity)
	copy(main[offSendQRange:offSendQRange+points], c.SendQRange)
	copy(main[offAnalogSendIRange:offAnalogSendIRange+points], c.AnalogSendIRange)
	copy(main[offAnalogSendQRange:offAnalogSendQRange+points], c.AnalogSendQRange)

	copy(secondary[offSendIRangeSecondary:offSendIRangeSecondary+points], c.SendIRange)

	for i := 0; i < points; i++ {
		pairOff := offFreqPairs + i*8
		membuf.BinaryToBCD32(c.RxFreq[i]/10, main[pairOff:pairOff+4])
		membuf.BinaryToBCD32(c.TxFreq[i]/10, main[pairOff+4:pairOff+8])
	}
}

// ReadSingleBand reads one CalData record (md3x0Calib_t) starting at
// offset 0 of both the main and secondary calibration areas.
func ReadSingleBand(main, secondary *nvm.Area) (CalData, error) {
	mainBuf := make([]byte, mainBlockSize)
	if err := main.Read(0, mainBuf); err != nil {
		return CalData{}, rterr.Newf(opRead, rterr.IO, "single-band calib main read: %v", err)
	}
	secBuf := make([]byte, secondaryBlockSize)
	if err := secondary.Read(0, secBuf); err != nil {
		return CalData{}, rterr.Newf(opRead, rterr.IO, "single-band calib secondary read: %v", err)
	}
	return decodeBlock(mainBuf, secBuf, Points), nil
}

// WriteSingleBand writes a CalData record starting at offset 0 of both
// the main and secondary calibration areas.
func WriteSingleBand(main, secondary *nvm.Area, c CalData) error {
	mainBuf := make([]byte, mainBlockSize)
	secBuf := make([]byte, secondaryBlockSize)
	encodeBlock(c, mainBuf, secBuf)
	if err := main.Write(0, mainBuf); err != nil {
		return err
	}
	return secondary.Write(0, secBuf)
}

// DualBand is mduv3x0Calib_t: a UHF record (Points calibration points)
// immediately followed, in both the main and secondary regions, by a VHF
// record of the same layout but only VHFPoints calibration points.
type DualBand struct {
	UHF CalData
	VHF CalData
}

// ReadDualBand reads mduv3x0Calib_t (UHF record then VHF record) from the
// main and secondary calibration areas.
func ReadDualBand(main, secondary *nvm.Area) (DualBand, error) {
	mainBuf := make([]byte, 2*mainBlockSize)
	if err := main.Read(0, mainBuf); err != nil {
		return DualBand{}, rterr.Newf(opRead, rterr.IO, "dual-band calib main read: %v", err)
	}
	secBuf := make([]byte, 2*secondaryBlockSize)
	if err := secondary.Read(0, secBuf); err != nil {
		return DualBand{}, rterr.Newf(opRead, rterr.IO, "dual-band calib secondary read: %v", err)
	}

	return DualBand{
		UHF: decodeBlock(mainBuf[:mainBlockSize], secBuf[:secondaryBlockSize], Points),
		VHF: decodeBlock(mainBuf[mainBlockSize:2*mainBlockSize], secBuf[secondaryBlockSize:2*secondaryBlockSize], VHFPoints),
	}, nil
}

// WriteDualBand writes a DualBand record (UHF then VHF) to the main and
// secondary calibration areas.
func WriteDualBand(main, secondary *nvm.Area, d DualBand) error {
	mainBuf := make([]byte, 2*mainBlockSize)
	secBuf := make([]byte, 2*secondaryBlockSize)
	encodeBlock(d.UHF, mainBuf[:mainBlockSize], secBuf[:secondaryBlockSize])
	encodeBlock(d.VHF, mainBuf[mainBlockSize:2*mainBlockSize], secBuf[secondaryBlockSize:2*secondaryBlockSize])
	if err := main.Write(0, mainBuf); err != nil {
		return err
	}
	return secondary.Write(0, secBuf)
}
