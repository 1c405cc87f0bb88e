// Command calibdump reads an RF calibration record out of an NVM area and
// prints it, a Go-native analogue of tests/platform/printCalib_MD3x0.c /
// printCalib_MDUV3x0.c.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/openrtx/runtime/internal/calib"
	"github.com/openrtx/runtime/internal/config"
	"github.com/openrtx/runtime/internal/nvm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "calibdump:", err)
		os.Exit(1)
	}
}

func run() error {
	boardFile := pflag.StringP("board-file", "b", "board.yaml", "Board descriptor YAML file.")
	area := pflag.StringP("area", "a", "calibration", "NVM area name holding the main calibration region.")
	secondaryArea := pflag.StringP("secondary-area", "s", "calibration-secondary", "NVM area name holding the secondary calibration region (sendIrange).")
	dualBand := pflag.BoolP("dual-band", "d", false, "Decode as mduv3x0Calib_t (UHF+VHF) instead of a single-band record.")
	pflag.Parse()

	board, err := config.Load(*boardFile)
	if err != nil {
		return err
	}

	main, err := resolveArea(board, *area)
	if err != nil {
		return err
	}
	secondary, err := resolveArea(board, *secondaryArea)
	if err != nil {
		return err
	}

	if *dualBand {
		d, err := calib.ReadDualBand(main, secondary)
		if err != nil {
			return err
		}
		printBand("UHF", d.UHF)
		printBand("VHF", d.VHF)
		return nil
	}

	c, err := calib.ReadSingleBand(main, secondary)
	if err != nil {
		return err
	}
	printBand("", c)
	return nil
}

// resolveArea builds the nvm.Area named areaName in board, constructing
// the backing device it references.
func resolveArea(board *config.Board, areaName string) (*nvm.Area, error) {
	var spec *config.NVMAreaSpec
	for i := range board.NVMAreas {
		if board.NVMAreas[i].Name == areaName {
			spec = &board.NVMAreas[i]
			break
		}
	}
	if spec == nil {
		return nil, fmt.Errorf("no nvm area named %q", areaName)
	}

	var devSpec *config.NVMDeviceSpec
	for i := range board.NVMDevices {
		if board.NVMDevices[i].Name == spec.Device {
			devSpec = &board.NVMDevices[i]
			break
		}
	}
	if devSpec == nil {
		return nil, fmt.Errorf("nvm area %q references unknown device %q", areaName, spec.Device)
	}

	var dev nvm.Ops
	switch devSpec.Kind {
	case "flash":
		var regions []nvm.SectorRegion
		for _, r := range devSpec.Regions {
			high := r.High
			if high == 0 {
				high = nvm.UnboundedHigh
			}
			regions = append(regions, nvm.SectorRegion{Low: r.Low, High: high, EraseUnit: r.EraseUnit, FirstSector: r.FirstSector})
		}
		dev = nvm.NewFlashDevice(devSpec.Size, nvm.Info{WriteUnit: 1, EraseUnit: uint32(devSpec.EraseUnit), Caps: nvm.CapWrite | nvm.CapErase}, regions)
	case "eeprom":
		dev = nvm.NewEEPROMDevice(devSpec.Size)
	default:
		return nil, fmt.Errorf("nvm device %s: unknown kind %q", devSpec.Name, devSpec.Kind)
	}

	return &nvm.Area{Dev: &nvm.Device{Name: devSpec.Name, Ops: dev}, StartAddr: spec.StartAddr, Size: spec.Size}, nil
}

func printBand(label string, c calib.CalData) {
	if label != "" {
		fmt.Printf("== %s band ==\n", label)
	}
	fmt.Printf("freqAdjustMid: %d\n", c.FreqAdjustMid)
	for i := 0; i < len(c.RxFreq); i++ {
		fmt.Printf("  [%d] rx=%d tx=%d txHi=%d txLo=%d rxSens=%d I=%d Q=%d aI=%d aQ=%d\n",
			i, c.RxFreq[i], c.TxFreq[i], c.TxHighPower[i], c.TxLowPower[i],
			c.RxSensitivity[i], c.SendIRange[i], c.SendQRange[i],
			c.AnalogSendIRange[i], c.AnalogSendQRange[i])
	}
}
