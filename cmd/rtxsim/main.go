// Command rtxsim hosts the runtime substrate (memory segments, pools, NVM,
// GPIO, audio routing, tone generator, channel selector) as a Linux
// process, wired together from a board YAML descriptor. It is the hosted
// stand-in for the firmware image a real handheld would boot.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/openrtx/runtime/internal/audio"
	"github.com/openrtx/runtime/internal/config"
	"github.com/openrtx/runtime/internal/gpio"
	"github.com/openrtx/runtime/internal/memseg"
	"github.com/openrtx/runtime/internal/nvm"
	"github.com/openrtx/runtime/internal/qdecoder"
	"github.com/openrtx/runtime/internal/rtlog"
	"github.com/openrtx/runtime/internal/tone"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rtxsim:", err)
		os.Exit(1)
	}
}

func run() error {
	cli := config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	switch *cli.LogLevel {
	case "debug":
		rtlog.SetLevel(log.DebugLevel)
	case "warn":
		rtlog.SetLevel(log.WarnLevel)
	case "error":
		rtlog.SetLevel(log.ErrorLevel)
	default:
		rtlog.SetLevel(log.InfoLevel)
	}
	logger := rtlog.For("rtxsim")

	board, err := config.Load(*cli.BoardFile)
	if err != nil {
		return err
	}
	logger.Info("loaded board", "name", board.Name, "sampleRate", board.SampleRate)

	registry := &memseg.Registry{}
	for _, segSpec := range board.Segments {
		storage := make([]byte, segSpec.Size)
		if _, err := registry.Create(segSpec.Name, storage, segSpec.Base, segSpec.Size, orOne(segSpec.PaddingAlign), segSpec.Track); err != nil {
			return fmt.Errorf("create segment %s: %w", segSpec.Name, err)
		}
		logger.Info("segment ready", "name", segSpec.Name, "size", segSpec.Size)
	}

	devices := map[string]nvm.Ops{}
	for _, d := range board.NVMDevices {
		switch d.Kind {
		case "flash":
			var regions []nvm.SectorRegion
			for _, r := range d.Regions {
				high := r.High
				if high == 0 {
					high = nvm.UnboundedHigh
				}
				regions = append(regions, nvm.SectorRegion{Low: r.Low, High: high, EraseUnit: r.EraseUnit, FirstSector: r.FirstSector})
			}
			devices[d.Name] = nvm.NewFlashDevice(d.Size, nvm.Info{WriteUnit: 1, EraseUnit: uint32(d.EraseUnit), Caps: nvm.CapWrite | nvm.CapErase}, regions)
		case "eeprom":
			devices[d.Name] = nvm.NewEEPROMDevice(d.Size)
		default:
			return fmt.Errorf("nvm device %s: unknown kind %q", d.Name, d.Kind)
		}
		logger.Info("nvm device ready", "name", d.Name, "kind", d.Kind, "size", d.Size)
	}

	areas := map[string]*nvm.Area{}
	for _, a := range board.NVMAreas {
		dev, ok := devices[a.Device]
		if !ok {
			return fmt.Errorf("nvm area %s: unknown device %q", a.Name, a.Device)
		}
		var parts []nvm.Partition
		for _, p := range a.Partitions {
			parts = append(parts, nvm.Partition{Offset: p.Offset, Size: p.Size})
		}
		areas[a.Name] = &nvm.Area{Dev: &nvm.Device{Name: a.Device, Ops: dev}, StartAddr: a.StartAddr, Size: a.Size, Partitions: parts}
		logger.Info("nvm area ready", "name", a.Name, "device", a.Device)
	}

	var pin gpio.Pin
	if *cli.Headless {
		pin = &headlessPins{}
	} else {
		pin = gpio.NewNative("gpiochip0")
	}
	for _, p := range board.GPIOPins {
		logger.Debug("gpio pin configured", "name", p.Name, "backend", p.Backend, "pin", p.Pin)
	}
	_ = pin

	router := audio.NewRouter(nil, nil)
	gen := tone.NewGenerator(board.SampleRate, router, audio.SinkSpk)
	dec := qdecoder.NewDecoder()

	logger.Info("runtime up", "areas", len(areas), "knobPosition", dec.Position(), "toneBusy", gen.ToneBusy())
	time.Sleep(10 * time.Millisecond)
	return nil
}

func orOne(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return v
}

// headlessPins is a no-op gpio.Pin for environments without a real
// gpiochip, used under --headless.
type headlessPins struct{ state [256]bool }

func (h *headlessPins) Set(pin int) error              { h.state[pin&0xff] = true; return nil }
func (h *headlessPins) Clear(pin int) error            { h.state[pin&0xff] = false; return nil }
func (h *headlessPins) Read(pin int) (bool, error)     { return h.state[pin&0xff], nil }
func (h *headlessPins) Mode(int, gpio.Mode, int) error { return nil }
