// Package config loads a board descriptor (memory map, NVM layout, pin
// assignments) from YAML, the Go-native analogue of this runtime's board
// hwconfig headers.
//
// Grounded on src/deviceid.go's tocalls.yaml loading via gopkg.in/yaml.v3
// (parse-into-struct, then build lookup structures) for the YAML-config
// idiom this codebase already uses.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SegmentSpec describes one memory segment to create at boot.
type SegmentSpec struct {
	Name         string `yaml:"name"`
	Base         uint64 `yaml:"base"`
	Size         uint64 `yaml:"size"`
	PaddingAlign uint64 `yaml:"padding_align"`
	Track        bool   `yaml:"track"`
}

// NVMAreaSpec describes one NVM area: which device it lives on, where,
// and its optional partition table.
type NVMAreaSpec struct {
	Name      string            `yaml:"name"`
	Device    string            `yaml:"device"`
	StartAddr uint64            `yaml:"start_addr"`
	Size      uint64            `yaml:"size"`
	Partitions []PartitionSpec  `yaml:"partitions"`
}

// PartitionSpec is one entry of an NVMAreaSpec's partition table.
type PartitionSpec struct {
	Offset uint64 `yaml:"offset"`
	Size   uint64 `yaml:"size"`
}

// NVMDeviceSpec describes a simulated NVM device backing one or more
// areas.
type NVMDeviceSpec struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"` // "flash" or "eeprom"
	Size      uint64         `yaml:"size"`
	EraseUnit uint64         `yaml:"erase_unit"`
	Regions   []RegionSpec   `yaml:"regions"`
}

// RegionSpec mirrors nvm.SectorRegion for YAML decoding.
type RegionSpec struct {
	Low         uint64 `yaml:"low"`
	High        uint64 `yaml:"high"` // 0 means "unbounded" in YAML; see nvm.UnboundedHigh
	EraseUnit   uint64 `yaml:"erase_unit"`
	FirstSector uint64 `yaml:"first_sector"`
}

// GPIOPinSpec names one logical pin and which backend range serves it.
type GPIOPinSpec struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"` // "native" or a named shift chain
	Pin     int    `yaml:"pin"`
}

// Board is the complete descriptor for one hardware target.
type Board struct {
	Name       string          `yaml:"name"`
	Segments   []SegmentSpec   `yaml:"segments"`
	NVMDevices []NVMDeviceSpec `yaml:"nvm_devices"`
	NVMAreas   []NVMAreaSpec   `yaml:"nvm_areas"`
	GPIOPins   []GPIOPinSpec   `yaml:"gpio_pins"`
	SampleRate uint32          `yaml:"sample_rate"`
}

// Load parses a board descriptor from path.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var b Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &b, nil
}
